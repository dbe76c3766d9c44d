package swipes

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
	"github.com/dkazakova/pawmatch/backend/internal/domain/model"
	pgrepo "github.com/dkazakova/pawmatch/backend/internal/repo/postgres"
	redrepo "github.com/dkazakova/pawmatch/backend/internal/repo/redis"
	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
	ratesvc "github.com/dkazakova/pawmatch/backend/internal/services/rate"
)

type pairKey struct {
	from int64
	to   int64
}

type swipeStoreStub struct {
	rows         map[pairKey]*model.Swipe
	lockCalls    int
	promoteCalls int
}

func newSwipeStoreStub() *swipeStoreStub {
	return &swipeStoreStub{rows: map[pairKey]*model.Swipe{}}
}

func (s *swipeStoreStub) AcquirePairLock(_ context.Context, _ pgx.Tx, _, _ int64) error {
	s.lockCalls++
	return nil
}

func (s *swipeStoreStub) CreateIfAbsent(_ context.Context, _ pgx.Tx, fromUserID, toUserID int64, status enums.SwipeStatus, now time.Time) (model.Swipe, bool, error) {
	key := pairKey{fromUserID, toUserID}
	if existing, ok := s.rows[key]; ok {
		return *existing, false, nil
	}
	rec := &model.Swipe{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.rows[key] = rec
	return *rec, true, nil
}

func (s *swipeStoreStub) Get(_ context.Context, _ pgx.Tx, fromUserID, toUserID int64) (model.Swipe, error) {
	if rec, ok := s.rows[pairKey{fromUserID, toUserID}]; ok {
		return *rec, nil
	}
	return model.Swipe{}, pgrepo.ErrSwipeNotFound
}

func (s *swipeStoreStub) PromotePairIfPending(_ context.Context, _ pgx.Tx, userA, userB int64, now time.Time) (int64, error) {
	s.promoteCalls++
	var promoted int64
	for _, key := range []pairKey{{userA, userB}, {userB, userA}} {
		if rec, ok := s.rows[key]; ok && rec.Status == enums.SwipeStatusPending {
			rec.Status = enums.SwipeStatusMatched
			rec.UpdatedAt = now
			promoted++
		}
	}
	return promoted, nil
}

type activityStub struct {
	touched []int64
}

func (s *activityStub) Touch(_ context.Context, _ pgx.Tx, userID int64, _ time.Time) error {
	s.touched = append(s.touched, userID)
	return nil
}

type gateStub struct {
	intents []model.NotificationIntent
}

func (s *gateStub) Evaluate(_ context.Context, intent model.NotificationIntent) (notifysvc.Decision, error) {
	s.intents = append(s.intents, intent)
	return notifysvc.Decision{Allowed: true, NotificationID: "n-1"}, nil
}

func newTestService(store *swipeStoreStub, activity *activityStub, gate *gateStub) *Service {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &Service{
		swipeStore: store,
		activity:   activity,
		gate:       gate,
		logger:     zap.NewNop(),
		now:        func() time.Time { return now },
	}
}

func TestSwipeValidation(t *testing.T) {
	svc := NewService(Dependencies{})

	if _, err := svc.Swipe(context.Background(), 0, 2, "LIKE"); err != ErrValidation {
		t.Fatalf("expected ErrValidation for zero user, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 5, 5, "LIKE"); err != ErrValidation {
		t.Fatalf("expected ErrValidation for self swipe, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 1, 2, "WINK"); err != ErrUnsupportedDecision {
		t.Fatalf("expected ErrUnsupportedDecision, got %v", err)
	}
}

func TestPassRecordsWithoutResolution(t *testing.T) {
	store := newSwipeStoreStub()
	activity := &activityStub{}
	gate := &gateStub{}
	svc := newTestService(store, activity, gate)
	now := svc.now()

	result, emit, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionPass, now)
	if err != nil {
		t.Fatalf("record pass: %v", err)
	}
	if result.MatchCreated || emit {
		t.Fatalf("pass must never create a match")
	}
	if result.Record.Status != enums.SwipeStatusPassed {
		t.Fatalf("unexpected status: %s", result.Record.Status)
	}
	if store.promoteCalls != 0 {
		t.Fatalf("pass must not attempt promotion")
	}
	if len(activity.touched) != 1 || activity.touched[0] != 101 {
		t.Fatalf("expected activity touch for actor, got %v", activity.touched)
	}
}

func TestLikeWithoutReciprocalStaysPending(t *testing.T) {
	store := newSwipeStoreStub()
	svc := newTestService(store, &activityStub{}, &gateStub{})
	now := svc.now()

	result, emit, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionLike, now)
	if err != nil {
		t.Fatalf("record like: %v", err)
	}
	if result.MatchCreated || emit {
		t.Fatalf("unreciprocated like must not match")
	}
	if result.Record.Status != enums.SwipeStatusPending {
		t.Fatalf("unexpected status: %s", result.Record.Status)
	}
	if store.lockCalls != 1 {
		t.Fatalf("expected one pair lock acquisition, got %d", store.lockCalls)
	}
}

func TestMutualLikePromotesBothAndSignalsOnce(t *testing.T) {
	store := newSwipeStoreStub()
	svc := newTestService(store, &activityStub{}, &gateStub{})
	now := svc.now()

	if _, _, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionLike, now); err != nil {
		t.Fatalf("first like: %v", err)
	}

	result, emit, err := svc.recordInTx(context.Background(), nil, 202, 101, enums.SwipeDecisionLike, now)
	if err != nil {
		t.Fatalf("second like: %v", err)
	}
	if !result.MatchCreated || !emit {
		t.Fatalf("expected match promotion by second like, got matched=%v emit=%v", result.MatchCreated, emit)
	}

	for _, key := range []pairKey{{101, 202}, {202, 101}} {
		if store.rows[key].Status != enums.SwipeStatusMatched {
			t.Fatalf("direction %v not matched: %s", key, store.rows[key].Status)
		}
	}
	if store.promoteCalls != 1 {
		t.Fatalf("expected exactly one promotion attempt, got %d", store.promoteCalls)
	}
}

func TestLikeAfterPassDoesNotMatch(t *testing.T) {
	store := newSwipeStoreStub()
	svc := newTestService(store, &activityStub{}, &gateStub{})
	now := svc.now()

	if _, _, err := svc.recordInTx(context.Background(), nil, 202, 101, enums.SwipeDecisionPass, now); err != nil {
		t.Fatalf("pass: %v", err)
	}

	result, emit, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionLike, now)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if result.MatchCreated || emit {
		t.Fatalf("like against a pass must not match")
	}
	if store.rows[pairKey{101, 202}].Status != enums.SwipeStatusPending {
		t.Fatalf("liker's record must stay pending")
	}
	if store.rows[pairKey{202, 101}].Status != enums.SwipeStatusPassed {
		t.Fatalf("passer's record must stay passed")
	}
}

func TestRepeatedSwipeIsIdempotent(t *testing.T) {
	store := newSwipeStoreStub()
	activity := &activityStub{}
	svc := newTestService(store, activity, &gateStub{})
	now := svc.now()

	first, _, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionLike, now)
	if err != nil {
		t.Fatalf("first like: %v", err)
	}

	later := now.Add(time.Hour)
	second, emit, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionLike, later)
	if err != nil {
		t.Fatalf("repeat like: %v", err)
	}
	if emit || second.MatchCreated {
		t.Fatalf("replay must not re-trigger resolution")
	}
	if second.Record != first.Record {
		t.Fatalf("replay must return the stored record unchanged: %+v vs %+v", second.Record, first.Record)
	}
	if store.promoteCalls != 0 {
		t.Fatalf("replay must not attempt promotion, got %d attempts", store.promoteCalls)
	}
	if len(activity.touched) != 1 {
		t.Fatalf("replay must not count as fresh activity, got %d touches", len(activity.touched))
	}
}

func TestReplayCannotResurrectMatchedRecord(t *testing.T) {
	store := newSwipeStoreStub()
	svc := newTestService(store, &activityStub{}, &gateStub{})
	now := svc.now()

	if _, _, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionLike, now); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, _, err := svc.recordInTx(context.Background(), nil, 202, 101, enums.SwipeDecisionLike, now); err != nil {
		t.Fatalf("mutual like: %v", err)
	}

	// A later PASS replay for a matched direction must be a no-op.
	result, emit, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionPass, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("replay pass: %v", err)
	}
	if emit {
		t.Fatalf("replay must not emit intents")
	}
	if result.Record.Status != enums.SwipeStatusMatched {
		t.Fatalf("matched is terminal, got %s", result.Record.Status)
	}
	if store.rows[pairKey{101, 202}].Status != enums.SwipeStatusMatched {
		t.Fatalf("stored record must remain matched")
	}
}

func TestObservingMatchedReciprocalDoesNotReEmit(t *testing.T) {
	store := newSwipeStoreStub()
	svc := newTestService(store, &activityStub{}, &gateStub{})
	now := svc.now()

	// Reciprocal already matched: the fresh like reports the match without
	// promoting or emitting again.
	store.rows[pairKey{202, 101}] = &model.Swipe{
		FromUserID: 202,
		ToUserID:   101,
		Status:     enums.SwipeStatusMatched,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	result, emit, err := svc.recordInTx(context.Background(), nil, 101, 202, enums.SwipeDecisionLike, now)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !result.MatchCreated {
		t.Fatalf("expected matched=true when reciprocal is already matched")
	}
	if emit {
		t.Fatalf("losing side must not re-emit intents")
	}
	if store.promoteCalls != 0 {
		t.Fatalf("losing side must not re-promote")
	}
}

func TestMatchEmitsExactlyTwoIntents(t *testing.T) {
	gate := &gateStub{}
	svc := newTestService(newSwipeStoreStub(), &activityStub{}, gate)

	svc.offerMatchIntents(context.Background(), 101, 202)

	if len(gate.intents) != 2 {
		t.Fatalf("expected two intents, got %d", len(gate.intents))
	}
	for i, wantUser := range []int64{101, 202} {
		intent := gate.intents[i]
		if intent.UserID != wantUser {
			t.Fatalf("intent %d: unexpected user %d", i, intent.UserID)
		}
		if intent.Category != enums.CategoryMatch {
			t.Fatalf("intent %d: unexpected category %s", i, intent.Category)
		}
	}
	if got, ok := gate.intents[0].Payload["peer_id"].(int64); !ok || got != 202 {
		t.Fatalf("unexpected peer in first intent payload: %+v", gate.intents[0].Payload)
	}
	if got, ok := gate.intents[1].Payload["peer_id"].(int64); !ok || got != 101 {
		t.Fatalf("unexpected peer in second intent payload: %+v", gate.intents[1].Payload)
	}
}

func TestLikeBlockedByBurstLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	limiter := ratesvc.NewLimiter(redrepo.NewWindowRepo(redisClient), 100, 2)
	svc := NewService(Dependencies{RateLimiter: limiter})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		// Dependency checks fire after the limiter, which is all this test
		// needs: the first two likes consume the burst window.
		_, _ = svc.Swipe(ctx, 101, int64(200+i), "LIKE")
	}

	_, err = svc.Swipe(ctx, 101, 205, "LIKE")
	tf, ok := IsTooFast(err)
	if !ok {
		t.Fatalf("expected TooFastError on third like, got %v", err)
	}
	if tf.RetryAfterSec <= 0 {
		t.Fatalf("expected positive retry_after, got %d", tf.RetryAfterSec)
	}
}
