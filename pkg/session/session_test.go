package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/trafficcast/pkg/adapters"
	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/storage"
)

const header = "holiday,temp,rain_1h,snow_1h,clouds_all,weather_main,date_time,traffic_volume\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoDays() string {
	var b strings.Builder
	b.WriteString(header)
	for d := 1; d <= 2; d++ {
		for h := range 24 {
			fmt.Fprintf(&b, "None,285,0,0,20,Clear,%02d-10-2012 %02d:00,%d\n", d, h, 300+100*h)
		}
	}
	// dropped by the cleaner
	b.WriteString("None,0,0,0,20,Clear,03-10-2012 00:00,1\n")
	// kept by the cleaner, undated
	b.WriteString("None,285,0,0,20,Clear,bad,1\n")
	return b.String()
}

// countingAdapter serves CSV text that can be replaced between calls and
// counts Collect calls.
type countingAdapter struct {
	mu    sync.Mutex
	data  string
	calls atomic.Int32
}

func (a *countingAdapter) Name() string { return "csv" }

func (a *countingAdapter) Collect(ctx context.Context) (dataset.Table, adapters.LoadReport, error) {
	a.calls.Add(1)
	a.mu.Lock()
	data := a.data
	a.mu.Unlock()
	return (&adapters.CSVAdapter{Reader: strings.NewReader(data)}).Collect(ctx)
}

func (a *countingAdapter) set(data string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = data
}

func newSession(data string) (*Session, *countingAdapter) {
	a := &countingAdapter{data: data}
	return New(a, discardLogger()), a
}

func baselineTrainer() *models.Trainer {
	return models.NewTrainer(models.Params{Regressor: models.RegressorBaseline}, models.WithLogger(discardLogger()))
}

func input(hour int) features.Input {
	return features.ConditionsAt(features.Conditions{Temp: 285, CloudsAll: 20, Holiday: "None", WeatherMain: "Clear"}, 2012, time.October, 3, hour).Input()
}

func TestSession_LoadOnce(t *testing.T) {
	sess, a := newSession(twoDays())

	_, ok := sess.Table()
	assert.False(t, ok)

	table, err := sess.LoadOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, table, 49)
	assert.True(t, table[0].Time.Valid, "rows are derived")

	again, err := sess.LoadOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, again, 49)
	assert.Equal(t, int32(1), a.calls.Load())

	cached, ok := sess.Table()
	assert.True(t, ok)
	assert.Len(t, cached, 49)
}

func TestSession_LoadOnce_NoSource(t *testing.T) {
	_, err := New(nil, nil).LoadOnce(context.Background())
	assert.ErrorIs(t, err, ErrNoDataSource)
}

func TestSession_LoadOnce_RetriesAfterFailure(t *testing.T) {
	sess := New(&adapters.CSVAdapter{Reader: strings.NewReader("a,b\n1,2\n")}, discardLogger())

	_, err := sess.LoadOnce(context.Background())
	require.Error(t, err)
	_, ok := sess.Table()
	assert.False(t, ok)
}

func TestSession_ModelUnavailable(t *testing.T) {
	sess, _ := newSession(twoDays())

	_, err := sess.Model()
	assert.ErrorIs(t, err, models.ErrModelUnavailable)
	_, err = sess.Predict(input(9))
	assert.ErrorIs(t, err, models.ErrModelUnavailable)
	assert.False(t, sess.Ready())

	_, err = sess.TrainOnce(context.Background())
	assert.ErrorIs(t, err, models.ErrModelUnavailable, "no provider configured")
}

func TestSession_TrainOnceInline(t *testing.T) {
	sess, a := newSession(twoDays())
	store := storage.NewMemoryStore()
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), true, store))

	m, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.Ready())
	assert.Equal(t, 48, m.Target().Rows, "undated row dropped before training")

	again, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, int32(1), a.calls.Load())

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Same(t, m, saved)

	p, err := sess.Predict(input(9))
	require.NoError(t, err)
	assert.Equal(t, 1200.0, p.Value)
	assert.Empty(t, p.Unseen)
}

func TestSession_KeepUndated(t *testing.T) {
	sess, _ := newSession(twoDays())
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), false, nil))

	m, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 49, m.Target().Rows)
}

func TestSession_InlineEmptyData(t *testing.T) {
	sess, _ := newSession(header)
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), true, nil))

	_, err := sess.TrainOnce(context.Background())
	assert.ErrorIs(t, err, models.ErrDataInsufficient)
	assert.False(t, sess.Ready())
}

func TestSession_RetrainSwaps(t *testing.T) {
	sess, _ := newSession(twoDays())
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), true, nil))

	first, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)

	second, err := sess.Retrain(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	current, err := sess.Model()
	require.NoError(t, err)
	assert.Same(t, second, current)

	// the old model keeps working for callers still holding it
	_, err = first.Predict(input(9))
	assert.NoError(t, err)
}

func TestSession_RetrainReloadsData(t *testing.T) {
	sess, a := newSession(twoDays())
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), true, nil))

	_, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)
	p, err := sess.Predict(input(9))
	require.NoError(t, err)
	assert.Equal(t, 1200.0, p.Value)

	a.set(strings.ReplaceAll(twoDays(), "None,285,0,0,20,Clear,02-10-2012 09:00,1200", "None,285,0,0,20,Clear,02-10-2012 09:00,2200"))
	m, err := sess.Retrain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.calls.Load())

	p, err = sess.Predict(input(9))
	require.NoError(t, err)
	assert.Equal(t, 1700.0, p.Value)
	current, err := sess.Model()
	require.NoError(t, err)
	assert.Same(t, m, current)
}

func TestSession_RetrainReloadFailureKeepsTableAndModel(t *testing.T) {
	sess, a := newSession(twoDays())
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), true, nil))
	first, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)

	a.set("")
	_, err = sess.Retrain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload")

	current, err := sess.Model()
	require.NoError(t, err)
	assert.Same(t, first, current)
	table, ok := sess.Table()
	assert.True(t, ok)
	assert.Len(t, table, 49)
}

type failingProvider struct{ err error }

func (p failingProvider) Name() string { return "failing" }

func (p failingProvider) Provide(context.Context) (*models.FittedModel, error) { return nil, p.err }

func TestSession_RetrainFailureKeepsModel(t *testing.T) {
	sess, _ := newSession(twoDays())
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), true, nil))
	first, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)

	boom := errors.New("boom")
	sess.SetProvider(failingProvider{err: boom})
	_, err = sess.Retrain(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing provider")

	current, err := sess.Model()
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestSession_DiskProvider(t *testing.T) {
	store := storage.NewMemoryStore()

	sess := New(nil, discardLogger())
	sess.SetProvider(NewDiskProvider(store))
	_, err := sess.TrainOnce(context.Background())
	assert.ErrorIs(t, err, models.ErrModelUnavailable)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	trainer, _ := newSession(twoDays())
	trainer.SetProvider(NewInlineProvider(trainer, baselineTrainer(), true, store))
	m, err := trainer.TrainOnce(context.Background())
	require.NoError(t, err)

	loaded, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, m.ID(), loaded.ID())
	assert.Equal(t, SourceDisk, NewDiskProvider(store).Name())
}

func TestSession_ConcurrentPredictDuringRetrain(t *testing.T) {
	sess, _ := newSession(twoDays())
	sess.SetProvider(NewInlineProvider(sess, baselineTrainer(), true, nil))
	_, err := sess.TrainOnce(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				p, err := sess.Predict(input(9))
				assert.NoError(t, err)
				assert.Equal(t, 1200.0, p.Value)
			}
		}()
	}
	for range 3 {
		_, err := sess.Retrain(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}
