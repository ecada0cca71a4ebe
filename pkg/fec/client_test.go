package fec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New("fec-key", apiclient.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	_, err := New("")
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}

func TestSearchCandidatesHeaderAndPaging(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fec-key", r.Header.Get("X-Api-Key"))
		assert.Empty(t, q.Get("api_key"))
		assert.Equal(t, "/v1/candidates/search/", r.URL.Path)
		assert.Equal(t, "100", q.Get("per_page"))
		assert.Equal(t, "2024", q.Get("cycle"))
		assert.Equal(t, OfficeSenate, q.Get("office"))
		_, _ = w.Write([]byte(`{"results":[{"candidate_id":"S0XX00001","name":"DOE, JANE"}],"pagination":{"count":1,"page":1}}`))
	})

	p, err := c.SearchCandidates(context.Background(), CandidateQuery{Office: OfficeSenate, Cycle: 2024, PerPage: 500})
	require.NoError(t, err)
	f := p.Fields()
	assert.Equal(t, 1, f["total_count"])
	assert.Equal(t, "DOE, JANE", p.Records[0]["name"])
	assert.Equal(t, "fec.candidates", p.Kind())
}

func TestTotals(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/candidate/P1/totals/":
			_, _ = w.Write([]byte(`{"results":[{"cycle":2024,"receipts":1050.25,"disbursements":500,
"cash_on_hand_end_period":550.25,"debts_owed_by_committee":10,"individual_contributions":900}]}`))
		case "/v1/committee/C1/totals/":
			_, _ = w.Write([]byte(`{"results":[{"cycle":2022,"receipts":10,"debts_owed":3,"debts_owed_by_committee":99}]}`))
		default:
			_, _ = w.Write([]byte(`{"results":[]}`))
		}
	})
	ctx := context.Background()

	ct, err := c.CandidateTotals(ctx, "P1", 0)
	require.NoError(t, err)
	assert.True(t, ct.Receipts.Equal(decimal.RequireFromString("1050.25")))
	assert.Equal(t, "10", ct.Debts.String())
	assert.Contains(t, ct.Fields(), "candidate_id")

	mt, err := c.CommitteeTotals(ctx, "C1", 2022)
	require.NoError(t, err)
	assert.Equal(t, "3", mt.Debts.String())
	assert.Equal(t, "fec.committee_totals", mt.Kind())

	_, err = c.CandidateTotals(ctx, "P404", 0)
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestCommittee(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/committee/C1/" {
			_, _ = w.Write([]byte(`{"results":[{"committee_id":"C1","name":"FRIENDS OF DOE","party_full":"INDEPENDENT"}]}`))
			return
		}
		http.NotFound(w, r)
	})

	cm, err := c.Committee(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "FRIENDS OF DOE", cm.Name)

	_, err = c.Committee(context.Background(), "C9")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestSchedules(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/v1/schedules/schedule_b/":
			assert.Equal(t, "C1", q.Get("committee_id"))
			assert.Equal(t, "250.5", q.Get("min_amount"))
		case "/v1/schedules/schedule_a/":
			assert.Equal(t, "Smith", q.Get("contributor_name"))
			assert.Empty(t, q.Get("min_amount"))
		}
		_, _ = w.Write([]byte(`{"results":[{"amount":1}],"pagination":{"count":7,"page":2}}`))
	})
	ctx := context.Background()

	d, err := c.Disbursements(ctx, ScheduleQuery{CommitteeID: "C1", MinAmount: decimal.RequireFromString("250.50")})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Fields()["page"])

	a, err := c.Contributions(ctx, ScheduleQuery{ContributorName: "Smith"})
	require.NoError(t, err)
	assert.Len(t, a.Fields()["contributions"], 1)

	_, err = c.Disbursements(ctx, ScheduleQuery{})
	assert.ErrorIs(t, err, apiclient.ErrConfig)
}
