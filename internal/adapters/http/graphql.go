package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// buildSchema exposes the visit and aggregation services over GraphQL. Field
// names on result objects follow the REST JSON so clients can share types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	heatmapPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HeatmapPoint",
		Fields: graphql.Fields{
			"lat":       &graphql.Field{Type: graphql.Float},
			"lon":       &graphql.Field{Type: graphql.Float},
			"intensity": &graphql.Field{Type: graphql.Float},
		},
	})

	coverageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CoverageStats",
		Fields: graphql.Fields{
			"unique_locations_covered": &graphql.Field{Type: graphql.Int},
			"total_visits":             &graphql.Field{Type: graphql.Int},
			"average_stay_duration":    &graphql.Field{Type: graphql.Float},
			"productive_visits":        &graphql.Field{Type: graphql.Int},
			"coverage_efficiency":      &graphql.Field{Type: graphql.Float},
			"window_days":              &graphql.Field{Type: graphql.Int},
		},
	})

	visitType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Visit",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.Int},
			"latitude":      &graphql.Field{Type: graphql.Float},
			"longitude":     &graphql.Field{Type: graphql.Float},
			"accuracy":      &graphql.Field{Type: graphql.Float},
			"user_id":       &graphql.Field{Type: graphql.Int},
			"stay_duration": &graphql.Field{Type: graphql.Int},
			"visit_type":    &graphql.Field{Type: graphql.String},
			"notes":         &graphql.Field{Type: graphql.String},
			"distance":      &graphql.Field{Type: graphql.Float},
			"created_at":    &graphql.Field{Type: graphql.String},
		},
	})

	visitResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "VisitResult",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.Int},
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
			"message":   &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"heatmap": &graphql.Field{
				Type:        graphql.NewList(heatmapPointType),
				Description: "Weighted heatmap points inside the constituency",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Aggregates.HeatmapData(p.Context)
				},
			},
			"coverageStats": &graphql.Field{
				Type:        coverageType,
				Description: "Coverage statistics for the trailing window",
				Args: graphql.FieldConfigArgument{
					"windowDays": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 7},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					days := p.Args["windowDays"].(int)
					if days == 0 {
						return nil, &domain.ValidationError{Field: "windowDays", Reason: "must be between 1 and 90"}
					}
					return deps.Aggregates.CoverageStatistics(p.Context, days)
				},
			},
			"visitsNearby": &graphql.Field{
				Type:        graphql.NewList(visitType),
				Description: "Visits near a location, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					visits, err := deps.Visits.FindNearby(p.Context, lat, lon, radius, limit)
					if err != nil {
						return nil, err
					}
					return toVisitViews(visits), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createVisit": &graphql.Field{
				Type:        visitResultType,
				Description: "Record a field visit",
				Args: graphql.FieldConfigArgument{
					"latitude":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"userId":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"accuracy":     &graphql.ArgumentConfig{Type: graphql.Float},
					"stayDuration": &graphql.ArgumentConfig{Type: graphql.Int},
					"visitType":    &graphql.ArgumentConfig{Type: graphql.String},
					"notes":        &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID := int64(p.Args["userId"].(int))
					in := domain.VisitInput{
						Latitude:  p.Args["latitude"].(float64),
						Longitude: p.Args["longitude"].(float64),
						UserID:    &userID,
					}
					if v, ok := p.Args["accuracy"].(float64); ok {
						in.Accuracy = &v
					}
					if v, ok := p.Args["stayDuration"].(int); ok {
						in.StayDuration = &v
					}
					if v, ok := p.Args["visitType"].(string); ok {
						in.VisitType = &v
					}
					if v, ok := p.Args["notes"].(string); ok {
						in.Notes = &v
					}
					return deps.Visits.Create(p.Context, in)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	return func(c *fiber.Ctx) error {
		var req struct {
			Query         string         `json:"query"`
			OperationName string         `json:"operationName"`
			Variables     map[string]any `json:"variables"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
