package core

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Category string

// Expense and budget categories.
const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryEntertainment  Category = "entertainment"
	CategoryUtilities      Category = "utilities"
	CategoryHousing        Category = "housing"
	CategoryHealthcare     Category = "healthcare"
	CategoryShopping       Category = "shopping"
	CategoryEducation      Category = "education"
	CategoryPersonal       Category = "personal"
	CategoryTravel         Category = "travel"
	CategoryOther          Category = "other"
)

// Recurring-only category.
const CategorySubscription Category = "subscription"

// CategoryAll is the query value meaning "no category filter".
const CategoryAll = "all"

// ContributionSource tags where a goal contribution came from.
type ContributionSource string

const (
	SourceWants   ContributionSource = "wants"
	SourceSavings ContributionSource = "savings"
	SourceOther   ContributionSource = "other"
)

var ErrInvalidCategory = &ValidationError{Field: "category", Reason: "unknown category"}

var (
	expenseCategories = map[Category]bool{
		CategoryFood: true, CategoryTransportation: true, CategoryEntertainment: true,
		CategoryUtilities: true, CategoryHousing: true, CategoryHealthcare: true,
		CategoryShopping: true, CategoryEducation: true, CategoryPersonal: true,
		CategoryTravel: true, CategoryOther: true,
	}
	recurringCategories = map[Category]bool{
		CategoryHousing: true, CategoryUtilities: true, CategorySubscription: true, CategoryOther: true,
	}
)

// ParseCategory normalizes user input to a Category without validating membership.
func ParseCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// IsExpense reports membership in the expense/budget set.
func (c Category) IsExpense() bool { return expenseCategories[c] }

// IsRecurring reports membership in the recurring set.
func (c Category) IsRecurring() bool { return recurringCategories[c] }

// IsLedger reports membership in the union accepted by ledger records.
func (c Category) IsLedger() bool { return c.IsExpense() || c.IsRecurring() }

func (c Category) String() string { return string(c) }

// Label returns a capitalized display label.
func (c Category) Label() string {
	return cases.Title(language.English).String(string(c))
}

// ExpenseCategories returns the expense/budget categories sorted by name.
func ExpenseCategories() []Category { return sortedKeys(expenseCategories) }

// RecurringCategories returns the recurring categories sorted by name.
func RecurringCategories() []Category { return sortedKeys(recurringCategories) }

func sortedKeys(m map[Category]bool) []Category {
	out := make([]Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseContributionSource defaults empty input to SourceOther.
func ParseContributionSource(s string) (ContributionSource, error) {
	switch src := ContributionSource(strings.ToLower(strings.TrimSpace(s))); src {
	case "":
		return SourceOther, nil
	case SourceWants, SourceSavings, SourceOther:
		return src, nil
	default:
		return "", &ValidationError{Field: "source_category", Reason: "must be one of wants, savings, other"}
	}
}
