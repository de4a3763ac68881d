package redirects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(line int, src, tgt, typ string) RawRow {
	return RawRow{Line: line, SourceURL: src, TargetURL: tgt, RedirectType: typ, Justification: "j", TicketID: "T"}
}

func TestCleanKeepsValidRowWithNote(t *testing.T) {
	c := NewCleaner(defaultPolicy(), DedupeLast)
	res := c.Clean([]RawRow{
		{Line: 2, SourceURL: "http://Example.com/Page/?utm_source=x&ref=y", TargetURL: "http://example.com/page", RedirectType: "301", Justification: "ok", TicketID: "T1"},
	})

	require.Len(t, res.Rows, 1)
	r := res.Rows[0]
	assert.Equal(t, "http://example.com/Page/?utm_source=x", r.SourceURL)
	assert.Equal(t, "http://example.com/page", r.TargetURL)
	assert.Equal(t, "301", r.RedirectType)
	assert.Equal(t, "ok", r.Justification)
	assert.Equal(t, "T1", r.TicketID)
	assert.Equal(t, "src:dropped_params", r.Notes())
	assert.Equal(t, Stats{TotalInput: 1, Kept: 1}, res.Stats)
}

func TestCleanDropsInvalidRows(t *testing.T) {
	c := NewCleaner(defaultPolicy(), DedupeLast)
	res := c.Clean([]RawRow{
		raw(2, "not a url", "http://example.com/b", "301"),
		raw(3, "http://example.com/a", "", "301"),
		raw(4, "", "", "301"),
		raw(5, "http://Example.com/same?ref=1", "http://example.com/same", "301"),
	})

	assert.Empty(t, res.Rows)
	assert.Equal(t, Stats{TotalInput: 4, InvalidSource: 2, InvalidTarget: 1, SelfRedirects: 1}, res.Stats)

	require.Len(t, res.Dropped, 4)
	assert.Equal(t, []string{DropInvalidSource}, res.Dropped[0].RowIssues)
	assert.Equal(t, []string{DropInvalidTarget}, res.Dropped[1].RowIssues)
	assert.Equal(t, []string{IssueEmpty}, res.Dropped[1].TargetIssues)
	assert.Equal(t, []string{DropInvalidSource}, res.Dropped[2].RowIssues, "source is checked first")
	assert.Equal(t, []string{DropSelfRedirect}, res.Dropped[3].RowIssues)
}

func TestCleanKeepsLiteralPercentInPath(t *testing.T) {
	c := NewCleaner(defaultPolicy(), DedupeLast)
	res := c.Clean([]RawRow{
		raw(2, "https://example.com/sale-50%-off", "https://example.com/sale", "301"),
	})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "https://example.com/sale-50%25-off", res.Rows[0].SourceURL)
	assert.Empty(t, res.Rows[0].Notes())
	assert.Equal(t, Stats{TotalInput: 1, Kept: 1}, res.Stats)
}

func TestCleanEmptyTargetCountsInvalidTarget(t *testing.T) {
	c := NewCleaner(defaultPolicy(), DedupeLast)
	res := c.Clean([]RawRow{
		raw(2, "http://example.com/keep", "http://example.com/x", "301"),
		raw(3, "http://example.com/a", "", "301"),
	})

	assert.Equal(t, 1, res.Stats.InvalidTarget)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "http://example.com/keep", res.Rows[0].SourceURL)
}

func TestCleanCoercesRedirectType(t *testing.T) {
	c := NewCleaner(defaultPolicy(), DedupeLast)
	res := c.Clean([]RawRow{
		raw(2, "http://example.com/a", "http://example.com/b", "999"),
		raw(3, "http://example.com/c", "http://example.com/d", ""),
		raw(4, "http://example.com/e", "http://example.com/f", "307"),
	})

	require.Len(t, res.Rows, 3)
	assert.Equal(t, "301", res.Rows[0].RedirectType)
	assert.Contains(t, res.Rows[0].Notes(), "fix:redirect_type:999")
	assert.Equal(t, "row:fix:redirect_type:999", res.Rows[0].Notes())
	assert.Equal(t, "301", res.Rows[1].RedirectType)
	assert.Equal(t, []string{"fix:redirect_type:"}, res.Rows[1].RowIssues)
	assert.Equal(t, "307", res.Rows[2].RedirectType)
	assert.Empty(t, res.Rows[2].RowIssues)
	assert.Equal(t, 2, res.Stats.BadType)
	assert.Equal(t, 3, res.Stats.Kept)
}

func TestCleanBadTypeCountedBeforeSelfRedirect(t *testing.T) {
	c := NewCleaner(defaultPolicy(), DedupeLast)
	res := c.Clean([]RawRow{raw(2, "http://example.com/a", "http://EXAMPLE.com/a#top", "410")})

	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.Stats.BadType)
	assert.Equal(t, 1, res.Stats.SelfRedirects)
	assert.Equal(t, []string{"fix:redirect_type:410", DropSelfRedirect}, res.Dropped[0].RowIssues)
}

func TestCleanSelfRedirectEliminated(t *testing.T) {
	p := defaultPolicy()
	p.TrailingSlash = TrailingSlashRemove
	p.LowercasePath = true
	c := NewCleaner(p, DedupeLast)

	rows := []RawRow{
		raw(2, "https://example.com/About/", "https://example.com/about", "301"),
		raw(3, "https://example.com/a?utm_source=x&gclid=1", "https://example.com/a?utm_source=x", "301"),
		raw(4, "https://example.com/a", "https://example.com/b", "301"),
	}
	res := c.Clean(rows)

	for _, r := range res.Rows {
		assert.NotEqual(t, r.SourceURL, r.TargetURL)
	}
	assert.Equal(t, 2, res.Stats.SelfRedirects)
	assert.Len(t, res.Rows, 1)
}

func TestCleanDedupe(t *testing.T) {
	rows := []RawRow{
		raw(2, "http://Example.com/old", "http://example.com/first", "301"),
		raw(3, "http://example.com/other", "http://example.com/x", "301"),
		raw(4, "http://example.com/old#frag", "http://example.com/second", "302"),
		raw(5, "HTTP://EXAMPLE.COM/old?ref=z", "http://example.com/third", "307"),
	}

	t.Run("last wins", func(t *testing.T) {
		res := NewCleaner(defaultPolicy(), DedupeLast).Clean(rows)

		require.Len(t, res.Rows, 2)
		assert.Equal(t, "http://example.com/old", res.Rows[0].SourceURL)
		assert.Equal(t, "http://example.com/third", res.Rows[0].TargetURL)
		assert.Equal(t, 5, res.Rows[0].Line)
		assert.Equal(t, "http://example.com/other", res.Rows[1].SourceURL)
		assert.Equal(t, 2, res.Stats.Deduped)
		assert.Equal(t, 2, res.Stats.Kept)
	})

	t.Run("first wins", func(t *testing.T) {
		res := NewCleaner(defaultPolicy(), DedupeFirst).Clean(rows)

		require.Len(t, res.Rows, 2)
		assert.Equal(t, "http://example.com/first", res.Rows[0].TargetURL)
		assert.Equal(t, 2, res.Rows[0].Line)
		assert.Equal(t, "301", res.Rows[0].RedirectType)
		assert.Equal(t, 2, res.Stats.Deduped)
	})
}

func TestCleanDedupeLastScenario(t *testing.T) {
	res := NewCleaner(defaultPolicy(), DedupeLast).Clean([]RawRow{
		raw(2, "https://example.com/promo?utm_source=a", "https://example.com/one", "301"),
		raw(3, "https://EXAMPLE.com/promo?utm_source=a&fbclid=zz", "https://example.com/two", "301"),
	})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "https://example.com/two", res.Rows[0].TargetURL)
}

func TestCleanCounterConservation(t *testing.T) {
	rows := []RawRow{
		raw(2, "http://example.com/a", "http://example.com/b", "301"),
		raw(3, "http://example.com/a", "http://example.com/c", "301"),
		raw(4, "http://example.com/a", "http://example.com/d", "999"),
		raw(5, "garbage", "http://example.com/d", "301"),
		raw(6, "http://example.com/e", "garbage", "301"),
		raw(7, "http://example.com/f", "http://example.com/f/", "301"),
		raw(8, "http://example.com/f", "http://example.com/f", "301"),
		raw(9, "http://example.com/g", "http://example.com/h", "302"),
	}

	for _, strategy := range []DedupeStrategy{DedupeFirst, DedupeLast} {
		t.Run(string(strategy), func(t *testing.T) {
			s := NewCleaner(defaultPolicy(), strategy).Clean(rows).Stats

			assert.Equal(t, len(rows), s.TotalInput)
			assert.LessOrEqual(t, s.InvalidSource+s.InvalidTarget+s.SelfRedirects+s.Kept, s.TotalInput)
			assert.Equal(t, s.TotalInput, s.InvalidSource+s.InvalidTarget+s.SelfRedirects+s.Kept+s.Deduped)
			assert.Equal(t, Stats{
				TotalInput:    8,
				InvalidSource: 1,
				InvalidTarget: 1,
				SelfRedirects: 1,
				BadType:       1,
				Deduped:       2,
				Kept:          3,
			}, s)
		})
	}
}

func TestCleanEmpty(t *testing.T) {
	res := NewCleaner(defaultPolicy(), DedupeLast).Clean(nil)
	assert.Empty(t, res.Rows)
	assert.Equal(t, Stats{}, res.Stats)
}
