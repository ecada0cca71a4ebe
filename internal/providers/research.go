package providers

import (
	"context"

	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
	"github.com/briangreenhill/researchdata/pkg/arxiv"
	"github.com/briangreenhill/researchdata/pkg/github"
	"github.com/briangreenhill/researchdata/pkg/openlibrary"
	"github.com/briangreenhill/researchdata/pkg/pubmed"
	"github.com/briangreenhill/researchdata/pkg/semanticscholar"
	"github.com/briangreenhill/researchdata/pkg/wikipedia"
)

func pubmedSource(cfg *config.Config, opts []apiclient.Option) *source {
	client := func() *pubmed.Client { return pubmed.New(pubmed.Config{APIKey: cfg.Keys.NCBI}, opts...) }
	search := func(run func(c *pubmed.Client, ctx context.Context, q string, o pubmed.SearchOptions) (pubmed.Articles, error), arg string) opFunc {
		return func(ctx context.Context, a Args) (apiclient.Result, error) {
			r := a.read()
			q := r.required(arg)
			o := pubmed.SearchOptions{
				MaxResults: r.int("max", pubmed.DefaultMaxResults),
				Sort:       r.str("sort", ""),
				Journal:    r.str("journal", ""),
				DateRange:  r.str("date_range", ""),
			}
			if r.err != nil {
				return nil, r.err
			}
			return wrap(run(client(), ctx, q, o))
		}
	}
	return &source{
		name:        "pubmed",
		description: "PubMed biomedical literature via NCBI E-utilities",
		ops: map[string]opFunc{
			"search":  search((*pubmed.Client).Search, "query"),
			"author":  search((*pubmed.Client).SearchByAuthor, "author"),
			"mesh":    search((*pubmed.Client).SearchByMeSH, "term"),
			"trials":  search((*pubmed.Client).SearchClinicalTrials, "query"),
			"reviews": search((*pubmed.Client).SearchReviews, "query"),
			"get": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id := r.required("id")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().GetByID(ctx, id))
			},
			"get_many": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				ids := r.list("ids")
				if len(ids) == 0 {
					return nil, apiclient.Configf("argument %q is required", "ids")
				}
				return wrap(client().GetByIDs(ctx, ids))
			},
		},
	}
}

func semanticScholarSource(cfg *config.Config, opts []apiclient.Option) *source {
	client := func() *semanticscholar.Client { return semanticscholar.New(cfg.Keys.SemanticScholar, opts...) }
	return &source{
		name:        "semanticscholar",
		description: "Semantic Scholar academic graph",
		ops: map[string]opFunc{
			"search": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, limit, fields := r.required("query"), r.int("limit", semanticscholar.DefaultLimit), r.list("fields")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().Search(ctx, q, limit, fields))
			},
			"doi": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				doi, fields := r.required("doi"), r.list("fields")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().GetByDOI(ctx, doi, fields))
			},
			"arxiv": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id, fields := r.required("id"), r.list("fields")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().GetByArxivID(ctx, id, fields))
			},
		},
	}
}

func arxivSource(opts []apiclient.Option) *source {
	listing := func(run func(c *arxiv.Client, ctx context.Context, q string, n int, sort string) (arxiv.Papers, error), arg string) opFunc {
		return func(ctx context.Context, a Args) (apiclient.Result, error) {
			r := a.read()
			q, n, sort := r.required(arg), r.int("max", arxiv.DefaultMaxResults), r.str("sort", "")
			if r.err != nil {
				return nil, r.err
			}
			return wrap(run(arxiv.New(opts...), ctx, q, n, sort))
		}
	}
	return &source{
		name:        "arxiv",
		description: "arXiv preprints from the Atom query API",
		ops: map[string]opFunc{
			"search":   listing((*arxiv.Client).Search, "query"),
			"author":   listing((*arxiv.Client).SearchByAuthor, "author"),
			"category": listing((*arxiv.Client).SearchByCategory, "category"),
			"get": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				id := r.required("id")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(arxiv.New(opts...).GetByID(ctx, id))
			},
			"get_many": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				ids := r.list("ids")
				if len(ids) == 0 {
					return nil, apiclient.Configf("argument %q is required", "ids")
				}
				return wrap(arxiv.New(opts...).GetByIDs(ctx, ids))
			},
		},
	}
}

func wikipediaSource(opts []apiclient.Option) *source {
	client := func(r *reader) *wikipedia.Client {
		return wikipedia.New(r.str("lang", wikipedia.DefaultLanguage), opts...)
	}
	return &source{
		name:        "wikipedia",
		description: "Wikipedia search, summaries and article text",
		ops: map[string]opFunc{
			"search": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, limit := r.required("query"), r.int("limit", wikipedia.DefaultLimit)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client(r).Search(ctx, q, limit))
			},
			"summary": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				title := r.required("title")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client(r).Summary(ctx, title))
			},
			"content": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				title := r.required("title")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client(r).FullContent(ctx, title))
			},
			"random": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				limit := r.int("limit", 1)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client(r).Random(ctx, limit))
			},
		},
	}
}

func openLibrarySource(opts []apiclient.Option) *source {
	return &source{
		name:        "openlibrary",
		description: "Open Library books, authors and subjects",
		ops: map[string]opFunc{
			"search": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, limit := r.required("query"), r.int("limit", openlibrary.DefaultLimit)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(openlibrary.New(opts...).Search(ctx, q, limit))
			},
			"isbn": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				isbn := r.required("isbn")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(openlibrary.New(opts...).GetByISBN(ctx, isbn))
			},
			"authors": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, limit := r.required("query"), r.int("limit", openlibrary.DefaultLimit)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(openlibrary.New(opts...).SearchAuthors(ctx, q, limit))
			},
			"author": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				key := r.required("key")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(openlibrary.New(opts...).GetAuthor(ctx, key))
			},
			"subject": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				subject, limit := r.required("subject"), r.int("limit", openlibrary.DefaultLimit)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(openlibrary.New(opts...).Subject(ctx, subject, limit))
			},
		},
	}
}

func githubSource(cfg *config.Config, opts []apiclient.Option) *source {
	client := func() *github.Client { return github.New(cfg.Keys.GitHub, opts...) }
	return &source{
		name:        "github",
		description: "GitHub repository, code and issue search",
		ops: map[string]opFunc{
			"repos": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, sort, order, per := r.required("query"), r.str("sort", ""), r.str("order", ""), r.int("per_page", 0)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().SearchRepositories(ctx, q, sort, order, per))
			},
			"code": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, per := r.required("query"), r.int("per_page", 0)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().SearchCode(ctx, q, per))
			},
			"issues": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				q, sort, order, per := r.required("query"), r.str("sort", ""), r.str("order", ""), r.int("per_page", 0)
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().SearchIssues(ctx, q, sort, order, per))
			},
			"repo": func(ctx context.Context, a Args) (apiclient.Result, error) {
				r := a.read()
				owner, repo := r.required("owner"), r.required("repo")
				if r.err != nil {
					return nil, r.err
				}
				return wrap(client().GetRepository(ctx, owner, repo))
			},
		},
	}
}
