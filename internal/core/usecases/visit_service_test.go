package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/canvass/internal/core/domain"
	"github.com/samirrijal/canvass/internal/core/usecases"
)

func int64p(v int64) *int64     { return &v }
func intp(v int) *int           { return &v }
func strp(v string) *string     { return &v }
func floatp(v float64) *float64 { return &v }

func TestVisitService_Create_Success(t *testing.T) {
	var got *domain.Visit
	repo := &mockVisitRepo{
		insertFn: func(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
			got = v
			// Store rounds on the way in; the echo is authoritative.
			return &domain.StoredPoint{ID: 42, Latitude: 25.850001, Longitude: 85.149999}, nil
		},
	}
	notifier := &recordingNotifier{}
	svc := usecases.NewVisitService(repo, notifier, nil)

	res, err := svc.Create(context.Background(), domain.VisitInput{
		Latitude:  25.85,
		Longitude: 85.15,
		UserID:    int64p(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != 42 {
		t.Errorf("expected id 42, got %d", res.ID)
	}
	if res.Latitude != 25.850001 || res.Longitude != 85.149999 {
		t.Errorf("expected echoed coordinates, got (%v, %v)", res.Latitude, res.Longitude)
	}
	if res.Message != "Location recorded successfully" {
		t.Errorf("unexpected message %q", res.Message)
	}

	if got.StayDuration != 0 || got.VisitType != "door_to_door" {
		t.Errorf("expected defaults, got stay=%d type=%q", got.StayDuration, got.VisitType)
	}

	if len(notifier.summaries) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.summaries))
	}
	s := notifier.summaries[0]
	if s.ID != 42 || s.UserID != 1 || s.Latitude != 25.850001 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestVisitService_Create_GeometryIsLonLat(t *testing.T) {
	repo := &mockVisitRepo{
		insertFn: func(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
			x, y := v.Location.XY()
			if x != 85.15 || y != 25.85 {
				t.Errorf("geometry built as (%v, %v), want (85.15, 25.85)", x, y)
			}
			return &domain.StoredPoint{ID: 1, Latitude: y, Longitude: x}, nil
		},
	}
	svc := usecases.NewVisitService(repo, nil, nil)
	res, err := svc.Create(context.Background(), domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Latitude != 25.85 || res.Longitude != 85.15 {
		t.Errorf("echo swapped: %+v", res)
	}
}

func TestVisitService_Create_KeepsSuppliedAttributes(t *testing.T) {
	var got *domain.Visit
	repo := &mockVisitRepo{
		insertFn: func(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
			got = v
			return &domain.StoredPoint{ID: 1}, nil
		},
	}
	svc := usecases.NewVisitService(repo, nil, nil)
	_, err := svc.Create(context.Background(), domain.VisitInput{
		Latitude:     25.86,
		Longitude:    85.20,
		UserID:       int64p(9),
		Accuracy:     floatp(12.5),
		StayDuration: intp(240),
		VisitType:    strp("rally"),
		Notes:        strp("met the family"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != 9 || *got.Accuracy != 12.5 || got.StayDuration != 240 || got.VisitType != "rally" || *got.Notes != "met the family" {
		t.Errorf("attributes not carried through: %+v", got)
	}
}

func TestVisitService_Create_OutOfBoundsSkipsStore(t *testing.T) {
	repo := &mockVisitRepo{}
	notifier := &recordingNotifier{}
	svc := usecases.NewVisitService(repo, notifier, nil)

	_, err := svc.Create(context.Background(), domain.VisitInput{Latitude: 26.0, Longitude: 85.15, UserID: int64p(1)})
	if !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Errorf("expected no insert, got %d", repo.insertCalls)
	}
	if len(notifier.summaries) != 0 {
		t.Error("no notification expected for rejected visit")
	}
}

func TestVisitService_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    domain.VisitInput
		field string
	}{
		{"missing user", domain.VisitInput{Latitude: 25.85, Longitude: 85.15}, "user_id"},
		{"negative stay", domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1), StayDuration: intp(-1)}, "stay_duration"},
		{"negative accuracy", domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1), Accuracy: floatp(-3)}, "accuracy"},
		{"long visit type", domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1), VisitType: strp(strings.Repeat("x", 51))}, "visit_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockVisitRepo{}
			svc := usecases.NewVisitService(repo, nil, nil)
			_, err := svc.Create(context.Background(), tt.in)

			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
			if repo.insertCalls != 0 {
				t.Error("store must not be called")
			}
		})
	}
}

func TestVisitService_Create_StoreFailureIsUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &mockVisitRepo{
		insertFn: func(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
			return nil, cause
		},
	}
	notifier := &recordingNotifier{}
	svc := usecases.NewVisitService(repo, notifier, nil)

	_, err := svc.Create(context.Background(), domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1)})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be preserved")
	}
	if len(notifier.summaries) != 0 {
		t.Error("no notification expected on failure")
	}
}

func TestVisitService_Create_StoreValidationPassesThrough(t *testing.T) {
	repo := &mockVisitRepo{
		insertFn: func(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
			return nil, &domain.ValidationError{Field: "user_id", Reason: "violates not-null constraint"}
		},
	}
	svc := usecases.NewVisitService(repo, nil, nil)
	_, err := svc.Create(context.Background(), domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		t.Error("validation failure must not be reported as an outage")
	}
}

func TestVisitService_Create_InvalidatesAggregateCache(t *testing.T) {
	cache := newMockCache()
	cache.data["aggregates:heatmap"] = []byte("[]")
	svc := usecases.NewVisitService(&mockVisitRepo{}, nil, cache)

	if _, err := svc.Create(context.Background(), domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.data["aggregates:heatmap"]; ok {
		t.Error("heatmap cache should be invalidated")
	}
	if len(cache.deleted) < 2 {
		t.Errorf("expected heatmap and coverage keys deleted, got %v", cache.deleted)
	}
}

func TestVisitService_Create_NotifiesThroughHubWithoutBlocking(t *testing.T) {
	hub := usecases.NewBroadcastHub(1)
	svc := usecases.NewVisitService(&mockVisitRepo{}, hub, nil)

	// Nobody drains the inbox; the second and third creates must still return.
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: int64p(1)}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
}

func TestVisitService_FindNearby(t *testing.T) {
	repo := &mockVisitRepo{
		nearbyFn: func(ctx context.Context, p domain.GeoPoint, radius float64, limit int) ([]domain.Visit, error) {
			if p.Lat != 25.85 || p.Lon != 85.15 {
				t.Errorf("unexpected point %+v", p)
			}
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			return []domain.Visit{{ID: 1}}, nil
		},
	}
	svc := usecases.NewVisitService(repo, nil, nil)

	visits, err := svc.FindNearby(context.Background(), 25.85, 85.15, 500, 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("expected 1 visit, got %d", len(visits))
	}

	if _, err := svc.FindNearby(context.Background(), 25.85, 85.15, 0, 10); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for radius 0, got %v", err)
	}
	if _, err := svc.FindNearby(context.Background(), 30, 85.15, 100, 10); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Errorf("expected out of bounds, got %v", err)
	}
}

func TestVisitService_ListRecent_ClampLimit(t *testing.T) {
	called := false
	repo := &mockVisitRepo{
		recentFn: func(ctx context.Context, limit int) ([]domain.Visit, error) {
			called = true
			if limit != 50 {
				t.Errorf("expected limit 50, got %d", limit)
			}
			return nil, nil
		},
	}
	svc := usecases.NewVisitService(repo, nil, nil)
	_, _ = svc.ListRecent(context.Background(), -1)
	if !called {
		t.Error("repo was not called")
	}
}

func TestVisitService_Create_BlankVisitTypeUsesDefault(t *testing.T) {
	var stored *domain.Visit
	repo := &mockVisitRepo{
		insertFn: func(_ context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
			stored = v
			return &domain.StoredPoint{ID: 1, Latitude: v.Location.Lat, Longitude: v.Location.Lon}, nil
		},
	}
	svc := usecases.NewVisitService(repo, nil, nil)

	for _, vt := range []string{"", "   ", "\t"} {
		userID := int64(1)
		in := domain.VisitInput{Latitude: 25.85, Longitude: 85.15, UserID: &userID, VisitType: &vt}
		if _, err := svc.Create(context.Background(), in); err != nil {
			t.Fatalf("visit_type %q: unexpected error: %v", vt, err)
		}
		if stored.VisitType != domain.DefaultVisitType {
			t.Errorf("visit_type %q: expected %q, got %q", vt, domain.DefaultVisitType, stored.VisitType)
		}
	}
}
