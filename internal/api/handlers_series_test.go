package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lnies/pressure-display/internal/ingest"
	"github.com/lnies/pressure-display/internal/models"
	"github.com/lnies/pressure-display/internal/refresh"
	"github.com/lnies/pressure-display/internal/schema"
	"github.com/lnies/pressure-display/internal/seriesdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

var t0 = time.Date(2019, 11, 30, 13, 0, 0, 0, time.UTC)

// testResult builds a two-file result over the default schema. Every
// pressure channel reads 1e-7*(row+1); Alkali's second reading is NaN.
func testResult(s *schema.Schema) *ingest.Result {
	channels := s.Channels()
	row := func(i int, ts time.Time, source string) models.NormalizedRow {
		values := make([]models.Value, len(channels))
		for j, ch := range channels {
			if ch.Kind == models.ChannelKindStatus {
				values[j] = models.Value{Status: "0"}
				continue
			}
			values[j] = models.Value{Pressure: 1e-7 * float64(i+1)}
		}
		return models.NormalizedRow{Timestamp: ts, Source: source, Line: i + 2, Values: values}
	}

	rows := []models.NormalizedRow{
		row(0, t0, "a.dat"),
		row(1, t0.Add(30*time.Second), "a.dat"),
		row(2, t0.Add(-time.Hour), "b.dat"),
	}
	rows[1].Values[0].Pressure = math.NaN()

	parts := []ingest.FileRows{
		{File: models.LogFile{Name: "a.dat"}, Rows: rows[:2]},
		{File: models.LogFile{Name: "b.dat"}, Rows: rows[2:]},
	}
	return &ingest.Result{
		RunID:     "3f1c2a9e-0000-4000-8000-000000000000",
		StartedAt: t0,
		Duration:  15 * time.Millisecond,
		Series:    ingest.MergeSeries(channels, parts),
		Stats:     ingest.Stats{FilesLocated: 2, FilesSelected: 2, RowsParsed: 3, RowsMalformed: 2},
		Errors: []models.ParseError{
			{File: "a.dat", Line: 9, Reason: "expected 49 columns, got 3", Kind: models.ParseErrorMalformedRow},
		},
	}
}

type testEnv struct {
	e       *echo.Echo
	holder  *refresh.Holder
	schema  *schema.Schema
	handler SeriesHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := schema.Default()
	holder := refresh.NewHolder()
	t.Cleanup(func() { holder.Close() })
	return &testEnv{
		e:       echo.New(),
		holder:  holder,
		schema:  s,
		handler: NewSeriesHandler(holder, s, time.Minute),
	}
}

func (env *testEnv) publish(t *testing.T, withIndex bool) *ingest.Result {
	t.Helper()
	res := testResult(env.schema)
	var ix *seriesdb.Index
	if withIndex {
		var err error
		ix, err = seriesdb.Build(context.Background(), res.Series, seriesdb.Options{Threads: 1})
		require.NoError(t, err)
	}
	env.holder.Publish(res, ix)
	return res
}

func (env *testEnv) do(t *testing.T, h echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if err := h(c); err != nil {
		ErrorHandler(err, c)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSeriesHandler_BeforeFirstRefresh(t *testing.T) {
	env := newTestEnv(t)

	for _, h := range []echo.HandlerFunc{
		env.handler.HandleSeries,
		env.handler.HandleSeriesMsgpack,
		env.handler.HandleDownsample,
		env.handler.HandleLatest,
		env.handler.HandleErrors,
	} {
		rec := env.do(t, h, "/api/series")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"SERVICE_UNAVAILABLE"`)
	}

	rec := env.do(t, env.handler.HandleStatus, "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	var status StatusView
	decode(t, rec, &status)
	assert.False(t, status.Ready)
	assert.Equal(t, 60, status.RefreshIntervalSeconds)
}

func TestSeriesHandler_HandleSeries(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, false)

	t.Run("all channels", func(t *testing.T) {
		rec := env.do(t, env.handler.HandleSeries, "/api/series")
		require.Equal(t, http.StatusOK, rec.Code)

		var view struct {
			NoData     bool     `json:"noData"`
			Files      []string `json:"files"`
			Timestamps []int64  `json:"timestamps"`
			Channels   []struct {
				Name   string     `json:"name"`
				Group  string     `json:"group"`
				Values []*float64 `json:"values"`
				Status []string   `json:"status"`
			} `json:"channels"`
		}
		decode(t, rec, &view)

		assert.False(t, view.NoData)
		assert.Equal(t, []string{"a.dat", "b.dat"}, view.Files)
		// File order, not chronological order.
		assert.Equal(t, []int64{t0.UnixMilli(), t0.Add(30 * time.Second).UnixMilli(), t0.Add(-time.Hour).UnixMilli()}, view.Timestamps)
		require.Len(t, view.Channels, 23)

		alkali := view.Channels[0]
		assert.Equal(t, "Alkali", alkali.Name)
		assert.Equal(t, schema.GroupHighVacuum, alkali.Group)
		require.Len(t, alkali.Values, 3)
		assert.Nil(t, alkali.Values[1], "NaN is encoded as null")
		assert.InDelta(t, 3e-7, *alkali.Values[2], 1e-15)
		assert.Equal(t, []string{"0", "0", "0"}, alkali.Status)
	})

	t.Run("group filter", func(t *testing.T) {
		rec := env.do(t, env.handler.HandleSeries, "/api/series?group=roughing")
		require.Equal(t, http.StatusOK, rec.Code)

		var view SeriesView
		decode(t, rec, &view)
		assert.Equal(t, schema.GroupRoughing, view.Group)
		require.Len(t, view.Channels, 9)
		assert.Equal(t, "Rough0", view.Channels[0].Name)
		for _, ch := range view.Channels {
			assert.Equal(t, schema.GroupRoughing, ch.Group)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		rec := env.do(t, env.handler.HandleSeries, "/api/series?group=turbo")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "group not found: turbo")
	})
}

func TestSeriesHandler_NoData(t *testing.T) {
	env := newTestEnv(t)
	env.holder.Publish(&ingest.Result{RunID: "r", NoData: true}, nil)

	rec := env.do(t, env.handler.HandleSeries, "/api/series")
	require.Equal(t, http.StatusOK, rec.Code)
	var view SeriesView
	decode(t, rec, &view)
	assert.True(t, view.NoData)
	assert.Empty(t, view.Channels)
	assert.Empty(t, view.Timestamps)

	rec = env.do(t, env.handler.HandleDownsample, "/api/series/downsample")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"noData":true`)

	rec = env.do(t, env.handler.HandleStatus, "/api/status")
	var status StatusView
	decode(t, rec, &status)
	assert.True(t, status.Ready)
	assert.True(t, status.NoData)
	assert.Equal(t, "r", status.RunID)
}

func TestSeriesHandler_HandleSeriesMsgpack(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, false)

	rec := env.do(t, env.handler.HandleSeriesMsgpack, "/api/series/msgpack?group=high_vacuum")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var view SeriesView
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Channels, 14)
	assert.Len(t, view.Timestamps, 3)
	assert.True(t, math.IsNaN(float64(view.Channels[0].Values[1])), "msgpack keeps NaN")
}

func TestSeriesHandler_HandleDownsample(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, true)

	t.Run("group buckets", func(t *testing.T) {
		rec := env.do(t, env.handler.HandleDownsample, "/api/series/downsample?group=high_vacuum&bucket=1h")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Bucket   string                   `json:"bucket"`
			Channels []seriesdb.ChannelPoints `json:"channels"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "1h0m0s", body.Bucket)
		require.Len(t, body.Channels, 14)
		alkali := body.Channels[0]
		assert.Equal(t, "Alkali", alkali.Channel)
		// b.dat's row falls in the previous hour; the NaN is skipped.
		require.Len(t, alkali.Points, 2)
		assert.Equal(t, 1, alkali.Points[0].Count)
		assert.Equal(t, 1, alkali.Points[1].Count)
	})

	t.Run("time window", func(t *testing.T) {
		rec := env.do(t, env.handler.HandleDownsample, "/api/series/downsample?group=roughing&start=2019-11-30T12:30:00Z")
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Channels []seriesdb.ChannelPoints `json:"channels"`
		}
		decode(t, rec, &body)
		require.Len(t, body.Channels, 9)
		require.Len(t, body.Channels[0].Points, 1)
		assert.Equal(t, 2, body.Channels[0].Points[0].Count)
	})

	for _, target := range []string{
		"/api/series/downsample?bucket=soon",
		"/api/series/downsample?bucket=10ms",
		"/api/series/downsample?start=yesterday",
		"/api/series/downsample?start=2019-11-30T13:00:00Z&end=2019-11-30T12:00:00Z",
	} {
		rec := env.do(t, env.handler.HandleDownsample, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestSeriesHandler_IndexUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, false)

	rec := env.do(t, env.handler.HandleDownsample, "/api/series/downsample")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, env.handler.HandleLatest, "/api/series/latest")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSeriesHandler_HandleLatest(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, true)

	rec := env.do(t, env.handler.HandleLatest, "/api/series/latest?group=high_vacuum")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Readings []seriesdb.Reading `json:"readings"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Readings, 14)
	assert.Equal(t, "Alkali", body.Readings[0].Channel)
	assert.InDelta(t, 3e-7, body.Readings[0].Value, 1e-15)
	assert.Equal(t, t0.Add(-time.Hour), body.Readings[0].Timestamp)
}

func TestSeriesHandler_HandleGroups(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, env.handler.HandleGroups, "/api/groups")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Groups []schema.Group `json:"groups"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Groups, 2)
	assert.Equal(t, schema.GroupHighVacuum, body.Groups[0].Name)
	assert.Len(t, body.Groups[0].Channels, 14)
	assert.Equal(t, schema.GroupRoughing, body.Groups[1].Name)
	assert.Len(t, body.Groups[1].Channels, 9)
}

func TestSeriesHandler_StatusAndErrors(t *testing.T) {
	env := newTestEnv(t)
	res := env.publish(t, false)

	rec := env.do(t, env.handler.HandleStatus, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusView
	decode(t, rec, &status)
	assert.True(t, status.Ready)
	assert.Equal(t, uint64(1), status.Seq)
	assert.Equal(t, res.RunID, status.RunID)
	assert.Equal(t, int64(15), status.DurationMs)
	assert.Equal(t, 3, status.Rows)
	assert.Equal(t, 2, status.Stats.RowsMalformed)
	require.NotNil(t, status.TimeRange)
	assert.Equal(t, t0.Add(-time.Hour), status.TimeRange.Start.UTC())
	require.NotNil(t, status.NextRefreshAt)
	assert.Equal(t, time.Minute, status.NextRefreshAt.Sub(*status.PublishedAt))

	rec = env.do(t, env.handler.HandleErrors, "/api/errors")
	require.Equal(t, http.StatusOK, rec.Code)
	var errs ErrorsView
	decode(t, rec, &errs)
	assert.Equal(t, 2, errs.Total)
	assert.True(t, errs.Truncated)
	require.Len(t, errs.Errors, 1)
	assert.Equal(t, models.ParseErrorMalformedRow, errs.Errors[0].Kind)
}

func TestPressure_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Pressure{1.5e-7, Pressure(math.NaN()), Pressure(math.Inf(1)), 0})
	require.NoError(t, err)
	assert.Equal(t, `[1.5e-07,null,null,0]`, string(data))
}
