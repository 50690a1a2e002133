package postgres

import (
	"fmt"
	"strings"

	"github.com/westtrac/parts-insights/internal/domain"
)

// zeroInvoiceCondition is true for orders whose cost lines add up to zero.
const zeroInvoiceCondition = `COALESCE((
            SELECT SUM(oc.unit_price * oc.amount)
            FROM order_costs oc
            WHERE oc.order_id = %[1]sid
        ), 0) = 0`

// buildUsageFilterClause constructs the AND-ed filter conditions for usage
// queries. orderAlias qualifies order columns, clientAlias the client name
// and partAlias the part number.
func buildUsageFilterClause(filter domain.UsageFilter, orderAlias, clientAlias, partAlias string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex
	o := normalizeAlias(orderAlias)

	if filter.From != nil {
		clauses = append(clauses, fmt.Sprintf("%sdefect_date >= $%d", o, idx))
		args = append(args, *filter.From)
		idx++
	}

	if filter.To != nil {
		clauses = append(clauses, fmt.Sprintf("%sdefect_date < $%d", o, idx))
		args = append(args, *filter.To)
		idx++
	}

	inClause := func(column string, values []string) {
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = fmt.Sprintf("$%d", idx)
			args = append(args, v)
			idx++
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	}

	if len(filter.Clients) > 0 {
		inClause(normalizeAlias(clientAlias)+"name", filter.Clients)
	}

	if len(filter.Categories) > 0 {
		inClause(o+"category", filter.Categories)
	}

	if len(filter.PartNumbers) > 0 {
		inClause(normalizeAlias(partAlias)+"number", filter.PartNumbers)
	}

	if filter.ExcludeZeroInvoices {
		clauses = append(clauses, "NOT "+fmt.Sprintf(zeroInvoiceCondition, o))
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}
