package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yolodolo42/gswap/internal/balance"
	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/portal"
	"github.com/yolodolo42/gswap/internal/token"
	"github.com/yolodolo42/gswap/internal/transfer"
)

// Portal is the part of the portal controller the dashboard drives.
type Portal interface {
	View() portal.View
	Registry() *chain.Registry
	RefreshBalances(ctx context.Context) error
	SwitchChain(ctx context.Context, chainID int64) error
	SelectToken(key string) error
	SetRecipient(v string)
	SetAmount(v string)
	Submit(ctx context.Context) (transfer.Result, error)
	AddCustomToken(ctx context.Context, address string) (token.Token, error)
	RemoveCustomToken(address string) error
}

type focus int

const (
	focusTokens focus = iota
	focusRecipient
	focusAmount
	focusCustom
)

const historyRows = 5

// Message types
type refreshedMsg struct{ err error }

type submittedMsg struct {
	res transfer.Result
	err error
}

type tokenAddedMsg struct {
	tok token.Token
	err error
}

type chainSwitchedMsg struct{ err error }

// Dashboard is the interactive portal screen: balance tiles, token list,
// transfer form, custom token input and recent history.
type Dashboard struct {
	ctx    context.Context
	portal Portal
	view   portal.View

	tokens    Selector
	chains    *Selector // open network picker, nil when closed
	recipient Field
	amount    Field
	custom    Field
	focus     focus

	spinner  spinner.Model
	width    int
	quitting bool
}

// NewDashboard builds the model with the token list focused.
func NewDashboard(ctx context.Context, p Portal) Dashboard {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	d := Dashboard{
		ctx:       ctx,
		portal:    p,
		tokens:    NewListSelector("Tokens", nil),
		recipient: NewField("Recipient", "0x...", 42),
		amount:    NewField("Amount", "0.0", 40),
		custom:    NewField("Add token", "ERC-20 contract address", 42),
		spinner:   sp,
		width:     80,
	}
	d.sync()
	d.recipient.SetValue(d.view.Recipient)
	d.amount.SetValue(d.view.Amount)
	d.applyFocus()
	return d
}

func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.refresh())
}

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if d.chains != nil {
			if msg.Type == tea.KeyCtrlC {
				d.quitting = true
				return d, tea.Quit
			}
			cmds = append(cmds, d.updateChains(msg))
			break
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			d.quitting = true
			return d, tea.Quit
		case tea.KeyTab:
			cmds = append(cmds, d.cycle(1))
		case tea.KeyShiftTab:
			cmds = append(cmds, d.cycle(-1))
		case tea.KeyCtrlR:
			cmds = append(cmds, d.refresh())
		case tea.KeyCtrlN:
			d.openChains()
		case tea.KeyEnter:
			cmds = append(cmds, d.enter())
		default:
			cmds = append(cmds, d.updateFocused(msg))
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width

	case submittedMsg:
		if msg.err == nil {
			d.recipient.Reset()
			d.amount.Reset()
		}

	case tokenAddedMsg:
		if msg.err == nil {
			d.custom.Reset()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	d.sync()
	return d, tea.Batch(cmds...)
}

func (d Dashboard) View() string {
	if d.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(d.header())
	b.WriteString("\n\n")

	if d.chains != nil {
		b.WriteString(d.chains.View())
		b.WriteString("\n")
		if n := d.view.Notice; n != nil {
			b.WriteString(renderNotice(n))
			b.WriteString("\n")
		}
		return b.String()
	}

	switch d.view.Status {
	case portal.StatusDisconnected:
		b.WriteString(WarningStyle.Render("No wallet connected. Run `gswap connect` first."))
		b.WriteString("\n\n")
	case portal.StatusUnsupported:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("Chain %d is not supported. Press ctrl+n to switch network.", d.view.ChainID)))
		b.WriteString("\n\n")
	default:
		b.WriteString(d.tiles())
		b.WriteString("\n\n")
	}

	form := []string{d.recipient.View(), d.amount.View()}
	if d.view.CustomTokens {
		form = append(form, "", d.custom.View())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(36).Render(d.tokens.View()),
		lipgloss.JoinVertical(lipgloss.Left, form...),
	))
	b.WriteString("\n")

	if n := d.view.Notice; n != nil {
		b.WriteString(renderNotice(n))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Recent transfers"))
	b.WriteString("\n")
	b.WriteString(HistoryTable(d.view.History, historyRows))
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("tab focus • enter select/send/add • x remove custom token • ctrl+n network • ctrl+r refresh • esc quit"))
	return b.String()
}

func (d Dashboard) header() string {
	chainName := fmt.Sprintf("chain %d", d.view.ChainID)
	if d.view.Chain != nil {
		chainName = d.view.Chain.Name
	}
	account := "not connected"
	if d.view.Status != portal.StatusDisconnected {
		account = portal.ShortAddress(d.view.Account.Hex())
		if !d.view.CanSign {
			account += " (read-only)"
		}
	}

	parts := []string{TitleStyle.Render("gswap"), chainName, SelectorDim.Render(account)}
	switch {
	case d.view.Submitting:
		parts = append(parts, d.spinner.View()+" waiting for confirmation")
	case d.view.AddingToken:
		parts = append(parts, d.spinner.View()+" reading token")
	case d.view.Refreshing:
		parts = append(parts, d.spinner.View()+" refreshing")
	}
	return strings.Join(parts, "  ")
}

func (d Dashboard) tiles() string {
	tiles := make([]string, 0, len(d.view.Catalog))
	for _, t := range d.view.Catalog {
		value := SymbolDots
		if e, ok := d.view.Balances.Get(t.Key()); ok {
			value = balance.Format(e)
		}
		tiles = append(tiles, TileStyle.Render(
			TileLabelStyle.Render(tokenLabel(t.Symbol, t.Custom))+"\n"+TileValueStyle.Render(value),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}

func renderNotice(n *portal.Notice) string {
	if n.Kind == portal.NoticeError {
		return ErrorStyle.Render(SymbolCross + " " + n.Message)
	}
	line := SuccessStyle.Render(SymbolCheck + " " + n.Message)
	if n.TxURL != "" {
		line += "\n  " + LinkStyle.Render(n.TxURL)
	}
	return line
}

// sync re-reads the portal state. It runs after every message so the view
// always reflects handlers finished in background commands.
func (d *Dashboard) sync() {
	d.view = d.portal.View()
	d.tokens.SetItems(tokenItems(d.view))
}

func tokenItems(v portal.View) []SelectorItem {
	items := make([]SelectorItem, 0, len(v.Catalog))
	for _, t := range v.Catalog {
		desc := "native"
		if !t.IsNative() {
			desc = portal.ShortAddress(t.Address)
		}
		if t.Custom {
			desc += " custom"
		}
		items = append(items, SelectorItem{
			ID:          t.Key(),
			Label:       t.Symbol,
			Description: desc,
			Current:     t.Key() == v.Selected,
		})
	}
	return items
}

func (d *Dashboard) focusCount() int {
	if d.view.CustomTokens {
		return 4
	}
	return 3
}

func (d *Dashboard) cycle(step int) tea.Cmd {
	n := d.focusCount()
	d.focus = focus((int(d.focus) + step + n) % n)
	return d.applyFocus()
}

func (d *Dashboard) applyFocus() tea.Cmd {
	d.tokens.Blur()
	d.recipient.Blur()
	d.amount.Blur()
	d.custom.Blur()

	switch d.focus {
	case focusRecipient:
		return d.recipient.Focus()
	case focusAmount:
		return d.amount.Focus()
	case focusCustom:
		return d.custom.Focus()
	default:
		d.tokens.Focus()
		return nil
	}
}

func (d *Dashboard) updateFocused(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch d.focus {
	case focusTokens:
		if msg.String() == "x" {
			d.removeCursorToken()
			return nil
		}
		d.tokens.Update(msg)
	case focusRecipient:
		_, cmd = d.recipient.Update(msg)
		d.portal.SetRecipient(d.recipient.Value())
	case focusAmount:
		_, cmd = d.amount.Update(msg)
		d.portal.SetAmount(d.amount.Value())
	case focusCustom:
		_, cmd = d.custom.Update(msg)
	}
	return cmd
}

func (d *Dashboard) enter() tea.Cmd {
	p, ctx := d.portal, d.ctx

	switch d.focus {
	case focusTokens:
		if id := d.tokens.CursorID(); id != "" {
			_ = p.SelectToken(id)
		}
		return nil
	case focusRecipient:
		return d.cycle(1)
	case focusAmount:
		if d.view.Submitting {
			return nil
		}
		return func() tea.Msg {
			res, err := p.Submit(ctx)
			return submittedMsg{res: res, err: err}
		}
	case focusCustom:
		addr := strings.TrimSpace(d.custom.Value())
		if addr == "" || d.view.AddingToken {
			return nil
		}
		return func() tea.Msg {
			tok, err := p.AddCustomToken(ctx, addr)
			return tokenAddedMsg{tok: tok, err: err}
		}
	}
	return nil
}

// openChains shows the network picker with the active chain preselected.
func (d *Dashboard) openChains() {
	chains := d.portal.Registry().Chains()
	items := make([]SelectorItem, 0, len(chains))
	for _, c := range chains {
		items = append(items, SelectorItem{
			ID:          strconv.FormatInt(c.ChainIDInt, 10),
			Label:       c.Name,
			Description: c.Key,
			Current:     c.ChainIDInt == d.view.ChainID,
		})
	}
	sel := NewSelector("Switch network", items)
	d.chains = &sel
}

// updateChains drives the open picker and switches once a chain is chosen.
func (d *Dashboard) updateChains(msg tea.KeyMsg) tea.Cmd {
	d.chains.Update(msg)
	if d.chains.Active() {
		return nil
	}
	id, cancelled := d.chains.Selected(), d.chains.Cancelled()
	d.chains = nil
	if cancelled {
		return nil
	}

	chainID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || chainID == d.view.ChainID {
		return nil
	}
	p, ctx := d.portal, d.ctx
	return func() tea.Msg {
		return chainSwitchedMsg{err: p.SwitchChain(ctx, chainID)}
	}
}

func (d *Dashboard) removeCursorToken() {
	t, ok := token.Find(d.view.Catalog, d.tokens.CursorID())
	if !ok || !t.Custom {
		return
	}
	_ = d.portal.RemoveCustomToken(t.Address)
}

func (d Dashboard) refresh() tea.Cmd {
	p, ctx := d.portal, d.ctx
	return func() tea.Msg {
		return refreshedMsg{err: p.RefreshBalances(ctx)}
	}
}

// RunDashboard runs the dashboard until the user quits or ctx is cancelled.
func RunDashboard(ctx context.Context, p Portal) error {
	prog := tea.NewProgram(NewDashboard(ctx, p), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
