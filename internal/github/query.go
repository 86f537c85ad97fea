// internal/github/query.go
package github

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	custom_errors "github-contributions/internal/errors"
	"github-contributions/internal/model"
)

// PageSize is the largest page the GraphQL API serves.
const PageSize = 100

// Page describes one cursor-paginated connection inside a query.
type Page struct {
	Resource   string
	Cursor     *model.Cursor
	Filter     string
	Fields     string
	Descending bool
}

// Limit is the number of nodes requested. A descending page resumed from a history cursor
// never asks for more nodes than remain before it.
func (p Page) Limit() int {
	if p.Descending && p.Cursor != nil && p.Cursor.Opaque == "" && p.Cursor.Head != "" {
		return min(PageSize, p.Cursor.Remaining)
	}
	return PageSize
}

// Paginated renders a paginated connection selection.
// Ascending pages use first/after and report hasNextPage/endCursor; descending pages use
// last/before and report hasPreviousPage/startCursor.
func Paginated(p Page) string {
	first, after, hasMore, cursorField := "first", "after", "hasNextPage", "endCursor"
	if p.Descending {
		first, after, hasMore, cursorField = "last", "before", "hasPreviousPage", "startCursor"
	}

	args := fmt.Sprintf("%s: %d", first, p.Limit())
	if p.Cursor != nil && !p.Cursor.IsZero() {
		args += fmt.Sprintf(", %s: %s", after, quote(p.Cursor.String()))
	}
	if p.Filter != "" {
		args += ", " + p.Filter
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s) {\n", p.Resource, args)
	b.WriteString("  totalCount\n")
	fmt.Fprintf(&b, "  pageInfo {\n    %s\n    %s\n  }\n", hasMore, cursorField)
	fmt.Fprintf(&b, "  nodes {\n%s\n  }\n", indent(strings.TrimSpace(p.Fields), "    "))
	b.WriteString("}")
	return b.String()
}

// quote renders s as a GraphQL string literal.
func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9_-]{0,37}[A-Za-z0-9])?$`)

// ValidateLogin rejects strings that cannot be GitHub logins.
func ValidateLogin(login string) error {
	if !loginPattern.MatchString(login) {
		return &custom_errors.ErrInvalidLogin{Login: login}
	}
	return nil
}

// CanonicalLogin returns the form of login that published items are keyed by. GitHub logins
// are case-insensitive.
func CanonicalLogin(login string) string {
	return strings.ToLower(login)
}
