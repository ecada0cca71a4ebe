// Package fec reads candidate and committee finance data from the Federal
// Election Commission's OpenFEC API.
package fec

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

const (
	DefaultBaseURL = "https://api.open.fec.gov/v1"
	EnvAPIKey      = "FEC_API_KEY"

	// Office codes.
	OfficeHouse     = "H"
	OfficeSenate    = "S"
	OfficePresident = "P"

	DefaultPerPage = 20
	maxPerPage     = 100
)

type Client struct {
	api    *apiclient.Client
	apiKey string
}

func New(apiKey string, opts ...apiclient.Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, apiclient.MissingCredential("fec", EnvAPIKey)
	}
	return &Client{api: apiclient.New("fec", opts...), apiKey: apiKey}, nil
}

type pagination struct {
	Count int `json:"count"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// Page is one page of raw OpenFEC records. Records keep the API's own field
// names; the schedules carry too many columns to model usefully.
type Page struct {
	kind       string
	Records    []map[string]any `json:"results"`
	Pagination pagination       `json:"pagination"`
}

func (p *Page) Kind() string { return "fec." + p.kind }

func (p *Page) Fields() map[string]any {
	page := p.Pagination.Page
	if page == 0 {
		page = 1
	}
	return map[string]any{p.kind: p.Records, "total_count": p.Pagination.Count, "page": page}
}

type CandidateQuery struct {
	Name    string
	Office  string
	State   string
	Party   string
	Cycle   int
	PerPage int
}

type Totals struct {
	ID                      string          `json:"id"`
	Cycle                   int             `json:"cycle"`
	Receipts                decimal.Decimal `json:"receipts"`
	Disbursements           decimal.Decimal `json:"disbursements"`
	CashOnHand              decimal.Decimal `json:"cash_on_hand"`
	Debts                   decimal.Decimal `json:"debts"`
	IndividualContributions decimal.Decimal `json:"individual_contributions"`
	PartyContributions      decimal.Decimal `json:"party_contributions"`
	committee               bool
}

func (t *Totals) Kind() string {
	if t.committee {
		return "fec.committee_totals"
	}
	return "fec.candidate_totals"
}

func (t *Totals) Fields() map[string]any {
	f := map[string]any{
		"cycle":         t.Cycle,
		"receipts":      t.Receipts,
		"disbursements": t.Disbursements,
		"cash_on_hand":  t.CashOnHand,
		"debts":         t.Debts,
	}
	if t.committee {
		f["committee_id"] = t.ID
		return f
	}
	f["candidate_id"] = t.ID
	f["individual_contributions"] = t.IndividualContributions
	f["pac_contributions"] = t.PartyContributions
	return f
}

type Committee struct {
	ID              string `json:"committee_id"`
	Name            string `json:"name"`
	Designation     string `json:"designation_full"`
	Type            string `json:"committee_type_full"`
	Party           string `json:"party_full"`
	TreasurerName   string `json:"treasurer_name"`
	State           string `json:"state"`
	FilingFrequency string `json:"filing_frequency"`
}

func (c *Committee) Kind() string { return "fec.committee" }

func (c *Committee) Fields() map[string]any {
	return map[string]any{
		"committee_id":     c.ID,
		"name":             c.Name,
		"designation":      c.Designation,
		"type":             c.Type,
		"party":            c.Party,
		"treasurer_name":   c.TreasurerName,
		"state":            c.State,
		"filing_frequency": c.FilingFrequency,
	}
}

// ScheduleQuery filters itemized receipts (schedule A) and disbursements
// (schedule B). MinAmount is ignored when zero.
type ScheduleQuery struct {
	CommitteeID     string
	ContributorName string
	MinAmount       decimal.Decimal
	MaxDate         string
	PerPage         int
}

func (c *Client) SearchCandidates(ctx context.Context, q CandidateQuery) (*Page, error) {
	params := apiclient.Params{}.
		Add("per_page", strconv.Itoa(perPage(q.PerPage))).
		AddIf("name", q.Name).
		AddIf("office", q.Office).
		AddIf("state", q.State).
		AddIf("party", q.Party)
	if q.Cycle > 0 {
		params = params.Add("cycle", strconv.Itoa(q.Cycle))
	}
	out := &Page{kind: "candidates"}
	if err := c.get(ctx, "candidates", "/candidates/search/", params, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CandidateTotals(ctx context.Context, candidateID string, cycle int) (*Totals, error) {
	if candidateID == "" {
		return nil, apiclient.Configf("fec: candidate id is required")
	}
	return c.totals(ctx, "candidate_totals", "/candidate/"+candidateID+"/totals/", candidateID, cycle, false)
}

func (c *Client) CommitteeTotals(ctx context.Context, committeeID string, cycle int) (*Totals, error) {
	if committeeID == "" {
		return nil, apiclient.Configf("fec: committee id is required")
	}
	return c.totals(ctx, "committee_totals", "/committee/"+committeeID+"/totals/", committeeID, cycle, true)
}

func (c *Client) Committee(ctx context.Context, committeeID string) (*Committee, error) {
	if committeeID == "" {
		return nil, apiclient.Configf("fec: committee id is required")
	}
	var body struct {
		Results []Committee `json:"results"`
	}
	url, err := c.fetch(ctx, "committee", "/committee/"+committeeID+"/", nil, &body)
	if err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("fec committee: %w", apiclient.NotFound(url, "committee %s not found", committeeID))
	}
	return &body.Results[0], nil
}

// Disbursements lists a committee's itemized spending.
func (c *Client) Disbursements(ctx context.Context, q ScheduleQuery) (*Page, error) {
	if q.CommitteeID == "" {
		return nil, apiclient.Configf("fec: committee id is required")
	}
	out := &Page{kind: "disbursements"}
	if err := c.get(ctx, "disbursements", "/schedules/schedule_b/", q.params(), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Contributions searches itemized individual contributions.
func (c *Client) Contributions(ctx context.Context, q ScheduleQuery) (*Page, error) {
	out := &Page{kind: "contributions"}
	if err := c.get(ctx, "contributions", "/schedules/schedule_a/", q.params(), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (q ScheduleQuery) params() apiclient.Params {
	p := apiclient.Params{}.
		AddIf("committee_id", q.CommitteeID).
		AddIf("contributor_name", q.ContributorName).
		Add("per_page", strconv.Itoa(perPage(q.PerPage)))
	if q.MinAmount.IsPositive() {
		p = p.Add("min_amount", q.MinAmount.String())
	}
	return p.AddIf("max_date", q.MaxDate)
}

func (c *Client) totals(ctx context.Context, op, path, id string, cycle int, committee bool) (*Totals, error) {
	params := apiclient.Params{}
	if cycle > 0 {
		params = params.Add("cycle", strconv.Itoa(cycle))
	}
	var body struct {
		Results []struct {
			Cycle                   int             `json:"cycle"`
			Receipts                decimal.Decimal `json:"receipts"`
			Disbursements           decimal.Decimal `json:"disbursements"`
			CashOnHand              decimal.Decimal `json:"cash_on_hand_end_period"`
			CandidateDebts          decimal.Decimal `json:"debts_owed_by_committee"`
			CommitteeDebts          decimal.Decimal `json:"debts_owed"`
			IndividualContributions decimal.Decimal `json:"individual_contributions"`
			PartyContributions      decimal.Decimal `json:"political_party_committee_contributions"`
		} `json:"results"`
	}
	url, err := c.fetch(ctx, op, path, params, &body)
	if err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("fec %s: %w", op, apiclient.NotFound(url, "no financial data for %s", id))
	}
	r := body.Results[0]
	t := &Totals{
		ID:                      id,
		Cycle:                   r.Cycle,
		Receipts:                r.Receipts,
		Disbursements:           r.Disbursements,
		CashOnHand:              r.CashOnHand,
		Debts:                   r.CandidateDebts,
		IndividualContributions: r.IndividualContributions,
		PartyContributions:      r.PartyContributions,
		committee:               committee,
	}
	if committee {
		t.Debts = r.CommitteeDebts
	}
	return t, nil
}

func (c *Client) get(ctx context.Context, op, path string, params apiclient.Params, v any) error {
	_, err := c.fetch(ctx, op, path, params, v)
	return err
}

func (c *Client) fetch(ctx context.Context, op, path string, params apiclient.Params, v any) (string, error) {
	resp, err := c.api.Fetch(ctx, apiclient.Request{
		Op:       op,
		Endpoint: DefaultBaseURL + path,
		Params:   params,
		Auth:     apiclient.Auth{Token: c.apiKey, Required: true, Header: "X-Api-Key", Env: EnvAPIKey},
		NotFound: true,
	})
	if err != nil {
		return "", fmt.Errorf("fec %s: %w", op, err)
	}
	if err := resp.Decode(v); err != nil {
		return "", fmt.Errorf("fec %s: %w", op, err)
	}
	return resp.URL, nil
}

func perPage(n int) int {
	if n <= 0 {
		return DefaultPerPage
	}
	return min(n, maxPerPage)
}
