package feed

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/xkdemo/moments/internal/gateway"
	mock_gateway "github.com/xkdemo/moments/internal/gateway/mocks"
	"github.com/xkdemo/moments/internal/mapper"
	"github.com/xkdemo/moments/pkg/config"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/mock/gomock"
)

func newTestCoordinator(t *testing.T, timeout time.Duration) (*Coordinator, *mock_gateway.MockTableStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	tables := mock_gateway.NewMockTableStore(ctrl)

	cfg := &config.Config{}
	cfg.App.Timezone = "Asia/Shanghai"
	cfg.Feed.FetchTimeout = timeout

	return New(Opts{Tables: tables, Logger: logger.Nop(), Config: cfg}), tables
}

func momentRecord(name, published string) gateway.Record {
	return gateway.Record{
		mapper.ColID:          "6f1c1a52-4d4e-4b5a-9b8e-2f3c4d5e6f70",
		mapper.ColUserName:    name,
		mapper.ColPublishTime: published,
		mapper.ColContentText: "hello from " + name,
	}
}

var feedQuery = gateway.Query{OrderBy: mapper.ColPublishTime, Descending: true}

func TestLoadProjectsRecordsInOrder(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		Return([]gateway.Record{
			momentRecord("Alice", "2025-11-09T02:30:00.000Z"),
			momentRecord("Bob", "2025-11-08T10:00:00.000Z"),
		}, nil)

	res, err := c.Load(context.Background(), TriggerActivation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusLoaded {
		t.Fatalf("expected loaded, got %v", res.Status)
	}

	st := c.State()
	if st.Loading || st.Err != nil {
		t.Fatalf("unexpected state: loading=%v err=%v", st.Loading, st.Err)
	}
	if len(st.Items) != 2 || st.Items[0].AuthorName != "Alice" || st.Items[1].AuthorName != "Bob" {
		t.Fatalf("order not preserved: %+v", st.Items)
	}
	if st.Items[1].DisplayTime != "11-8 18:00" {
		t.Fatalf("expected display time 11-8 18:00, got %q", st.Items[1].DisplayTime)
	}
	if st.Items[0].DisplayTime != "11-9 10:30" {
		t.Fatalf("expected display time 11-9 10:30, got %q", st.Items[0].DisplayTime)
	}
}

func TestLoadEmptyFeed(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	tables.EXPECT().Select(gomock.Any(), gateway.TableMoments, feedQuery).Return(nil, nil)

	res, err := c.Load(context.Background(), TriggerRefresh)
	if err != nil || res.Status != StatusLoaded {
		t.Fatalf("expected loaded, got %v / %v", res.Status, err)
	}
	if st := c.State(); len(st.Items) != 0 || st.Loading {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestLaterLoadWinsRegardlessOfCompletionOrder(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	started := make(chan struct{})
	release := make(chan struct{})

	first := tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
			close(started)
			<-release
			// The transport ignored cancellation and answered anyway.
			return []gateway.Record{momentRecord("Stale", "2025-11-01T00:00:00.000Z")}, nil
		})
	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		Return([]gateway.Record{momentRecord("Fresh", "2025-11-08T10:00:00.000Z")}, nil).
		After(first)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.Load(context.Background(), TriggerActivation)
		done <- outcome{res, err}
	}()
	<-started

	res, err := c.Load(context.Background(), TriggerRefresh)
	if err != nil || res.Status != StatusLoaded {
		t.Fatalf("expected second load to win, got %v / %v", res.Status, err)
	}

	close(release)
	out := <-done
	if out.err != nil {
		t.Fatalf("superseded load must not report an error, got %v", out.err)
	}
	if out.res.Status != StatusSuperseded {
		t.Fatalf("expected superseded, got %v", out.res.Status)
	}

	st := c.State()
	if len(st.Items) != 1 || st.Items[0].AuthorName != "Fresh" {
		t.Fatalf("stale result leaked into state: %+v", st.Items)
	}
	if st.Generation != res.Generation {
		t.Fatalf("expected generation %d, got %d", res.Generation, st.Generation)
	}
}

func TestSupersededLoadCancelErrorIsSilent(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	started := make(chan struct{})
	first := tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	fresh := make(chan struct{})
	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
			<-fresh
			return []gateway.Record{momentRecord("Fresh", "2025-11-08T10:00:00.000Z")}, nil
		}).
		After(first)

	firstDone := make(chan Result, 1)
	go func() {
		res, err := c.Load(context.Background(), TriggerActivation)
		if err != nil {
			t.Errorf("superseded load returned error: %v", err)
		}
		firstDone <- res
	}()
	<-started

	secondDone := make(chan Result, 1)
	go func() {
		res, _ := c.Load(context.Background(), TriggerRefresh)
		secondDone <- res
	}()

	// The first load finishes while the second is still in flight.
	if res := <-firstDone; res.Status != StatusSuperseded {
		t.Fatalf("expected superseded, got %v", res.Status)
	}
	st := c.State()
	if !st.Loading || st.Err != nil {
		t.Fatalf("superseded load touched state: loading=%v err=%v", st.Loading, st.Err)
	}

	close(fresh)
	if res := <-secondDone; res.Status != StatusLoaded {
		t.Fatalf("expected loaded, got %v", res.Status)
	}
}

func TestCancelKeepsPreviousItems(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	started := make(chan struct{})
	first := tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		Return([]gateway.Record{momentRecord("Alice", "2025-11-08T10:00:00.000Z")}, nil)
	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
			close(started)
			<-ctx.Done()
			return nil, pkgerrors.WrapWithCode(ctx.Err(), pkgerrors.CodeCancelled, "select moments")
		}).
		After(first)

	if _, err := c.Load(context.Background(), TriggerActivation); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	done := make(chan Result, 1)
	go func() {
		res, err := c.Load(context.Background(), TriggerRefresh)
		if err != nil {
			t.Errorf("cancelled load returned error: %v", err)
		}
		done <- res
	}()
	<-started
	if !c.State().Loading {
		t.Fatalf("expected loading while refresh is in flight")
	}

	c.Cancel()
	if res := <-done; res.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %v", res.Status)
	}

	st := c.State()
	if st.Loading {
		t.Fatalf("expected loading=false after cancel")
	}
	if st.Err != nil {
		t.Fatalf("cancellation must not surface an error, got %v", st.Err)
	}
	if len(st.Items) != 1 || st.Items[0].AuthorName != "Alice" {
		t.Fatalf("previous items lost: %+v", st.Items)
	}
}

func TestCancelDropsRowsReturnedAfterAbort(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	started := make(chan struct{})
	release := make(chan struct{})
	first := tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		Return([]gateway.Record{momentRecord("Alice", "2025-11-08T10:00:00.000Z")}, nil)
	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
			close(started)
			<-release
			return []gateway.Record{momentRecord("Late", "2025-11-09T10:00:00.000Z")}, nil
		}).
		After(first)

	if _, err := c.Load(context.Background(), TriggerActivation); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	done := make(chan Result, 1)
	go func() {
		res, err := c.Load(context.Background(), TriggerRefresh)
		if err != nil {
			t.Errorf("cancelled load returned error: %v", err)
		}
		done <- res
	}()
	<-started
	c.Cancel()
	close(release)

	if res := <-done; res.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %v", res.Status)
	}
	st := c.State()
	if st.Loading || st.Err != nil {
		t.Fatalf("expected idle state without error, got loading=%v err=%v", st.Loading, st.Err)
	}
	if len(st.Items) != 1 || st.Items[0].AuthorName != "Alice" {
		t.Fatalf("cancelled refresh replaced the list: %+v", st.Items)
	}
}

func TestCallerCancelDropsRowsReturnedAfterAbort(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(context.Context, string, gateway.Query) ([]gateway.Record, error) {
			cancel()
			return []gateway.Record{momentRecord("Late", "2025-11-09T10:00:00.000Z")}, nil
		})

	res, err := c.Load(ctx, TriggerActivation)
	if err != nil {
		t.Fatalf("cancelled load returned error: %v", err)
	}
	if res.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %v", res.Status)
	}
	if st := c.State(); len(st.Items) != 0 || st.Loading {
		t.Fatalf("expected empty idle state, got %+v", st)
	}
}

func TestCancelWithoutLoadIsNoop(t *testing.T) {
	c, _ := newTestCoordinator(t, 0)
	c.Cancel()
	if st := c.State(); st.Loading || st.Err != nil {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestLoadFailureClassification(t *testing.T) {
	tests := []struct {
		name     string
		records  []gateway.Record
		err      error
		kind     ErrorKind
		sentinel error
		message  string
	}{
		{
			name:     "network",
			err:      pkgerrors.WrapWithCode(errors.New("dial tcp: connection refused"), pkgerrors.CodeNetwork, "select moments"),
			kind:     KindNetwork,
			sentinel: ErrNetwork,
		},
		{
			name: "format",
			records: []gateway.Record{{
				mapper.ColID:          "not-a-uuid",
				mapper.ColUserName:    "Bob",
				mapper.ColPublishTime: "2025-11-08T10:00:00.000Z",
				mapper.ColContentText: "hi",
			}},
			kind:     KindFormat,
			sentinel: ErrFormat,
		},
		{
			name: "short non-uuid id",
			records: []gateway.Record{{
				mapper.ColID:          "a1",
				mapper.ColUserName:    "Bob",
				mapper.ColPublishTime: "2025-11-08T10:00:00.000Z",
				mapper.ColContentText: "hi",
			}},
			kind:     KindFormat,
			sentinel: ErrFormat,
		},
		{
			name:     "unknown",
			err:      errors.New("permission denied for table moments"),
			kind:     KindUnknown,
			sentinel: ErrUnknown,
			message:  "permission denied for table moments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tables := newTestCoordinator(t, 0)

			seed := tables.EXPECT().
				Select(gomock.Any(), gateway.TableMoments, feedQuery).
				Return([]gateway.Record{momentRecord("Alice", "2025-11-08T10:00:00.000Z")}, nil)
			tables.EXPECT().
				Select(gomock.Any(), gateway.TableMoments, feedQuery).
				Return(tt.records, tt.err).
				After(seed)

			if _, err := c.Load(context.Background(), TriggerActivation); err != nil {
				t.Fatalf("seed load: %v", err)
			}

			res, err := c.Load(context.Background(), TriggerRefresh)
			if res.Status != StatusFailed {
				t.Fatalf("expected failed, got %v", res.Status)
			}
			var ferr *Error
			if !errors.As(err, &ferr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if ferr.Kind != tt.kind {
				t.Fatalf("expected kind %v, got %v", tt.kind, ferr.Kind)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected errors.Is(%v)", tt.sentinel)
			}
			if tt.message != "" && ferr.Error() != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, ferr.Error())
			}

			st := c.State()
			if st.Loading || st.Err != err {
				t.Fatalf("failure not published: loading=%v err=%v", st.Loading, st.Err)
			}
			if len(st.Items) != 1 {
				t.Fatalf("previous items should stay visible, got %+v", st.Items)
			}
		})
	}
}

func TestFetchTimeoutIsNetworkFailure(t *testing.T) {
	c, tables := newTestCoordinator(t, 20*time.Millisecond)

	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	res, err := c.Load(context.Background(), TriggerActivation)
	if res.Status != StatusFailed {
		t.Fatalf("expected failed, got %v", res.Status)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestNewLoadClearsPreviousError(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	started := make(chan struct{})
	release := make(chan struct{})
	failing := tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		Return(nil, errors.New("boom"))
	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		DoAndReturn(func(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
			close(started)
			<-release
			return nil, nil
		}).
		After(failing)

	if _, err := c.Load(context.Background(), TriggerActivation); err == nil {
		t.Fatalf("expected failure")
	}
	if c.State().Err == nil {
		t.Fatalf("expected error in state")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Load(context.Background(), TriggerRefresh)
	}()
	<-started

	st := c.State()
	if !st.Loading || st.Err != nil {
		t.Fatalf("expected loading with cleared error, got loading=%v err=%v", st.Loading, st.Err)
	}
	close(release)
	<-done
}

func TestSubscribersSeeLoadingThenLoaded(t *testing.T) {
	c, tables := newTestCoordinator(t, 0)

	tables.EXPECT().
		Select(gomock.Any(), gateway.TableMoments, feedQuery).
		Return([]gateway.Record{momentRecord("Alice", "2025-11-08T10:00:00.000Z")}, nil)

	var seen []State
	unsubscribe := c.Subscribe(func(s State) { seen = append(seen, s) })
	defer unsubscribe()

	if _, err := c.Load(context.Background(), TriggerActivation); err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if !seen[0].Loading || seen[1].Loading || len(seen[1].Items) != 1 {
		t.Fatalf("unexpected notifications: %+v", seen)
	}
}
