package postgres

import (
	"context"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"etsy_importer/internal/domain"
)

type TermStore struct {
	db *sqlx.DB
}

func NewTermStore(db *sqlx.DB) *TermStore {
	return &TermStore{db: db}
}

// AttachTerms links the named terms of a taxonomy to the record, creating
// missing terms. Existing links are never removed.
func (s *TermStore) AttachTerms(ctx context.Context, recordID int64, taxonomy string, names []string) error {
	termIDs, err := s.ensureTerms(ctx, taxonomy, names)
	if err != nil {
		return err
	}
	if len(termIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO record_terms (record_id, term_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`

	_, err = GetExecutor(ctx, s.db).ExecContext(ctx, query, recordID, pq.Array(termIDs))
	return err
}

func (s *TermStore) ensureTerms(ctx context.Context, taxonomy string, names []string) ([]int64, error) {
	seen := make(map[string]struct{}, len(names))
	var termNames, slugs []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := slugify(name)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		termNames = append(termNames, name)
		slugs = append(slugs, slug)
	}
	if len(slugs) == 0 {
		return nil, nil
	}

	// The no-op update makes RETURNING yield ids of terms that already exist.
	query := `
		INSERT INTO terms (taxonomy, name, slug)
		SELECT $1, t.name, t.slug FROM unnest($2::text[], $3::text[]) AS t(name, slug)
		ON CONFLICT (taxonomy, slug) DO UPDATE SET name = terms.name
		RETURNING id`

	var ids []int64
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids, query,
		taxonomy, pq.Array(termNames), pq.Array(slugs))
	return ids, err
}

func (s *TermStore) GetByRecordID(ctx context.Context, recordID int64, taxonomy string) ([]domain.Term, error) {
	query := `
		SELECT t.id, t.taxonomy, t.name, t.slug
		FROM terms t
		INNER JOIN record_terms rt ON rt.term_id = t.id
		WHERE rt.record_id = $1 AND t.taxonomy = $2
		ORDER BY t.id`

	var terms []domain.Term
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &terms, query, recordID, taxonomy)
	return terms, err
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// slugify lower-cases the name, folds accents and joins runs of letters and
// digits with single hyphens: "Home & Living" becomes "home-living".
func slugify(name string) string {
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		folded = name
	}

	var sb strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingDash = false
			sb.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return sb.String()
}
