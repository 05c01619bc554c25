package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yolodolo42/gswap/internal/balance"
	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/portal"
)

const dateLayout = "2006-01-02 15:04"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorDim)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		}).
		Headers(headers...)
}

// ChainsTable lists the supported chains, marking the default and the active one.
func ChainsTable(chains []*chain.ChainConfig, defaultID, activeID int64) string {
	t := newTable("Key", "Name", "Chain ID", "Native", "Explorer", "")
	for _, c := range chains {
		var marks []string
		if c.ChainIDInt == defaultID {
			marks = append(marks, "default")
		}
		if c.ChainIDInt == activeID {
			marks = append(marks, "active")
		}
		t.Row(c.Key, c.Name, fmt.Sprint(c.ChainIDInt), c.NativeCurrency, c.ExplorerURL, strings.Join(marks, ", "))
	}
	return t.String()
}

// BalancesTable renders the catalog with the snapshot's balances. Tokens not
// read yet show an ellipsis.
func BalancesTable(v portal.View) string {
	t := newTable("Token", "Balance", "Exact", "Contract")
	for _, tok := range v.Catalog {
		short, exact := SymbolDots, SymbolDots
		if e, ok := v.Balances.Get(tok.Key()); ok {
			short, exact = balance.Format(e), balance.FormatFull(e)
		}
		t.Row(tokenLabel(tok.Symbol, tok.Custom), short, exact, contractLabel(tok.Address))
	}
	return t.String()
}

// TokensTable renders the catalog of the active chain.
func TokensTable(v portal.View) string {
	t := newTable("Symbol", "Decimals", "Contract", "Source", "")
	for _, tok := range v.Catalog {
		source := "default"
		if tok.Custom {
			source = "custom"
		}
		selected := ""
		if tok.Key() == v.Selected {
			selected = SymbolCheck
		}
		t.Row(tok.Symbol, fmt.Sprint(tok.Decimals), tok.Address, source, selected)
	}
	return t.String()
}

// HistoryTable renders up to limit transfers, newest first. Zero means all.
func HistoryTable(rows []portal.HistoryRow, limit int) string {
	if len(rows) == 0 {
		return HelpStyle.Render("No transfers yet.")
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	t := newTable("Date", "Amount", "To", "Transaction")
	for _, r := range rows {
		t.Row(
			r.Date.UTC().Format(dateLayout),
			r.Amount+" "+r.Token,
			portal.ShortAddress(r.To),
			r.URL,
		)
	}
	return t.String()
}

func tokenLabel(symbol string, custom bool) string {
	if custom {
		return symbol + " " + SymbolCustom
	}
	return symbol
}

func contractLabel(address string) string {
	if address == "" {
		return "-"
	}
	return portal.ShortAddress(address)
}
