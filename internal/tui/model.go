// Package tui is the terminal client: a bubbletea state machine over the
// API gateway with four views (login, register, dashboard, form). All
// state lives in the model; every view render rebuilds the screen from
// scratch, and at most one network request is in flight at a time.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"finpro/internal/api"
	"finpro/internal/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type view int

const (
	viewLogin view = iota
	viewRegister
	viewDashboard
	viewForm
)

// Form field order. Text fields take typed input, choice fields cycle
// with left/right.
const (
	fieldDate = iota
	fieldDescription
	fieldAmount
	fieldType
	fieldMethod
	fieldCard
	fieldCategory
	fieldCount
)

type formState struct {
	rowIndex    int
	date        string
	description string
	amount      string
	category    string
	typeIdx     int
	methodIdx   int
	cardIdx     int
	focus       int
}

var typeOptions = []core.TransactionType{core.Expense, core.Income}
var methodOptions = []core.PaymentMethod{core.Credit, core.Debit}

type Model struct {
	client *api.Client

	view     view
	username string

	// credential inputs for login and register
	userInput string
	passInput string
	credFocus int

	txs    []core.Transaction
	cursor int

	form formState

	loading      bool
	notification string
	notifyError  bool
	insight      string
	showInsight  bool
	quitting     bool
}

type loginResultMsg struct {
	ok       bool
	username string
	message  string
}

type registerResultMsg struct {
	ok      bool
	message string
}

type transactionsMsg []core.Transaction
type savedMsg struct{}
type deletedMsg struct{}
type insightMsg string
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// New builds the initial model. A restored session skips straight to the
// dashboard.
func New(client *api.Client, session *Session) Model {
	m := Model{client: client, view: viewLogin}
	if session != nil {
		m.username = session.Username
		m.view = viewDashboard
		m.loading = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.view == viewDashboard {
		return m.fetchTransactions()
	}
	return nil
}

func (m Model) fetchTransactions() tea.Cmd {
	client, username := m.client, m.username
	return func() tea.Msg {
		txs, err := client.Transactions(context.Background(), username)
		if err != nil {
			return errMsg{err}
		}
		return transactionsMsg(txs)
	}
}

func (m Model) login(username, password string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		res, err := client.CheckUser(context.Background(), username, password)
		if err != nil {
			return errMsg{err}
		}
		return loginResultMsg{ok: res.Success, username: username, message: res.Message}
	}
}

func (m Model) register(username, password string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		res, err := client.Register(context.Background(), username, password)
		if err != nil {
			return errMsg{err}
		}
		return registerResultMsg{ok: res.Success, message: res.Message}
	}
}

func (m Model) save(tx core.Transaction) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if err := client.Save(context.Background(), tx); err != nil {
			return errMsg{err}
		}
		return savedMsg{}
	}
}

func (m Model) delete(rowIndex int) tea.Cmd {
	client, username := m.client, m.username
	return func() tea.Msg {
		if err := client.Delete(context.Background(), username, rowIndex); err != nil {
			return errMsg{err}
		}
		return deletedMsg{}
	}
}

func (m Model) insights() tea.Cmd {
	client, txs := m.client, m.txs
	return func() tea.Msg {
		text, err := client.Insights(context.Background(), txs)
		if err != nil {
			return errMsg{err}
		}
		return insightMsg(text)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		// One request in flight at a time; keys are ignored until it
		// resolves.
		if m.loading {
			return m, nil
		}
		if m.showInsight {
			if msg.String() == "esc" || msg.String() == "enter" {
				m.showInsight = false
			}
			return m, nil
		}
		switch m.view {
		case viewLogin, viewRegister:
			return m.updateCredentials(msg)
		case viewDashboard:
			return m.updateDashboard(msg)
		case viewForm:
			return m.updateForm(msg)
		}

	case loginResultMsg:
		m.loading = false
		if !msg.ok {
			m.notify(orDefault(msg.message, "invalid login"), true)
			return m, nil
		}
		m.username = msg.username
		m.view = viewDashboard
		m.notify("Welcome back!", false)
		if err := SaveSession(Session{Username: m.username}); err != nil {
			m.notify("could not save session: "+err.Error(), true)
		}
		m.loading = true
		return m, m.fetchTransactions()

	case registerResultMsg:
		m.loading = false
		if !msg.ok {
			m.notify(orDefault(msg.message, "could not create account"), true)
			return m, nil
		}
		m.view = viewLogin
		m.passInput = ""
		m.credFocus = 0
		m.notify("Account created, log in now", false)
		return m, nil

	case transactionsMsg:
		m.loading = false
		m.txs = []core.Transaction(msg)
		if m.cursor >= len(m.txs) {
			m.cursor = 0
		}
		return m, nil

	case savedMsg:
		m.view = viewDashboard
		m.loading = true
		m.notify("Transaction saved", false)
		return m, m.fetchTransactions()

	case deletedMsg:
		m.loading = true
		m.notify("Transaction removed", false)
		return m, m.fetchTransactions()

	case insightMsg:
		m.loading = false
		m.insight = string(msg)
		m.showInsight = true
		return m, nil

	case errMsg:
		m.loading = false
		m.notify(msg.err.Error(), true)
		return m, nil
	}

	return m, nil
}

func (m *Model) notify(text string, isError bool) {
	m.notification = text
	m.notifyError = isError
}

func (m Model) updateCredentials(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.credFocus = (m.credFocus + 1) % 2
	case "shift+tab", "up":
		m.credFocus = (m.credFocus + 1) % 2
	case "backspace":
		if m.credFocus == 0 && len(m.userInput) > 0 {
			m.userInput = m.userInput[:len(m.userInput)-1]
		} else if m.credFocus == 1 && len(m.passInput) > 0 {
			m.passInput = m.passInput[:len(m.passInput)-1]
		}
	case "ctrl+r":
		if m.view == viewLogin {
			m.view = viewRegister
			m.notification = ""
		}
	case "ctrl+l":
		if m.view == viewRegister {
			m.view = viewLogin
			m.notification = ""
		}
	case "enter":
		if m.credFocus == 0 {
			m.credFocus = 1
			return m, nil
		}
		return m.submitCredentials()
	default:
		if len(msg.String()) == 1 {
			if m.credFocus == 0 {
				m.userInput += msg.String()
			} else {
				m.passInput += msg.String()
			}
		}
	}
	return m, nil
}

func (m Model) submitCredentials() (tea.Model, tea.Cmd) {
	if m.userInput == "" || m.passInput == "" {
		m.notify("fill in all fields", true)
		return m, nil
	}
	if m.view == viewRegister {
		if err := core.ValidateCredentials(m.userInput, m.passInput); err != nil {
			m.notify(err.Error(), true)
			return m, nil
		}
		m.loading = true
		return m, m.register(m.userInput, m.passInput)
	}
	m.loading = true
	return m, m.login(m.userInput, m.passInput)
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.txs)-1 {
			m.cursor++
		}
	case "n":
		m.form = newForm(nil)
		m.view = viewForm
	case "enter":
		if len(m.txs) > 0 {
			tx := m.txs[m.cursor]
			m.form = newForm(&tx)
			m.view = viewForm
		}
	case "d":
		if len(m.txs) > 0 {
			m.loading = true
			return m, m.delete(m.txs[m.cursor].RowIndex)
		}
	case "i":
		m.loading = true
		return m, m.insights()
	case "r":
		m.loading = true
		return m, m.fetchTransactions()
	case "l":
		if err := ClearSession(); err != nil {
			m.notify("could not clear session: "+err.Error(), true)
			return m, nil
		}
		return New(m.client, nil), nil
	}
	return m, nil
}

func newForm(tx *core.Transaction) formState {
	f := formState{}
	if tx == nil {
		return f
	}
	f.rowIndex = tx.RowIndex
	f.date = tx.Date
	f.description = tx.Description
	f.amount = core.FormatAmount(tx.Amount)
	f.category = tx.Category
	for i, t := range typeOptions {
		if t == tx.Type {
			f.typeIdx = i
		}
	}
	for i, mth := range methodOptions {
		if mth == tx.Method {
			f.methodIdx = i
		}
	}
	for i, c := range core.CardOptions {
		if c.ID == tx.Card {
			f.cardIdx = i
		}
	}
	return f
}

func (f formState) transaction(username string) core.Transaction {
	return core.Transaction{
		Username:    username,
		Date:        f.date,
		Description: f.description,
		Amount:      core.ParseAmount(f.amount),
		Type:        typeOptions[f.typeIdx],
		Method:      methodOptions[f.methodIdx],
		Card:        core.CardOptions[f.cardIdx].ID,
		Category:    f.category,
		RowIndex:    f.rowIndex,
	}
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.form
	switch msg.String() {
	case "esc":
		m.view = viewDashboard
	case "tab", "down":
		f.focus = (f.focus + 1) % fieldCount
	case "shift+tab", "up":
		f.focus = (f.focus + fieldCount - 1) % fieldCount
	case "left":
		cycleChoice(f, -1)
	case "right":
		cycleChoice(f, 1)
	case "backspace":
		switch f.focus {
		case fieldDate:
			f.date = trimLast(f.date)
		case fieldDescription:
			f.description = trimLast(f.description)
		case fieldAmount:
			f.amount = trimLast(f.amount)
		case fieldCategory:
			f.category = trimLast(f.category)
		}
	case "enter":
		if f.focus < fieldCount-1 {
			f.focus++
			return m, nil
		}
		tx := f.transaction(m.username)
		if tx.Date == "" {
			m.notify("date is required", true)
			return m, nil
		}
		if err := tx.Validate(); err != nil {
			m.notify(err.Error(), true)
			return m, nil
		}
		m.loading = true
		return m, m.save(tx)
	default:
		if len(msg.String()) == 1 {
			switch f.focus {
			case fieldDate:
				f.date += msg.String()
			case fieldDescription:
				f.description += msg.String()
			case fieldAmount:
				f.amount += msg.String()
			case fieldCategory:
				f.category += msg.String()
			}
		}
	}
	return m, nil
}

func cycleChoice(f *formState, dir int) {
	switch f.focus {
	case fieldType:
		f.typeIdx = (f.typeIdx + dir + len(typeOptions)) % len(typeOptions)
	case fieldMethod:
		f.methodIdx = (f.methodIdx + dir + len(methodOptions)) % len(methodOptions)
	case fieldCard:
		f.cardIdx = (f.cardIdx + dir + len(core.CardOptions)) % len(core.CardOptions)
	}
}

func trimLast(s string) string {
	if s == "" {
		return s
	}
	return s[:len(s)-1]
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("💰 finpro") + "\n\n")

	if m.showInsight {
		s.WriteString(promptStyle.Render("Insights") + "\n\n")
		s.WriteString(m.insight + "\n\n")
		s.WriteString(mutedStyle.Render("Press Esc to close") + "\n")
		return s.String()
	}

	if m.loading {
		s.WriteString("Loading...\n")
		return s.String()
	}

	switch m.view {
	case viewLogin:
		m.renderCredentials(&s, "Log in", "Ctrl+R to create an account")
	case viewRegister:
		m.renderCredentials(&s, "Create account", "Ctrl+L to go back to login")
	case viewDashboard:
		m.renderDashboard(&s)
	case viewForm:
		m.renderForm(&s)
	}

	if m.notification != "" {
		style := successStyle
		if m.notifyError {
			style = errorStyle
		}
		s.WriteString("\n" + style.Render(m.notification) + "\n")
	}

	return s.String()
}

func (m Model) renderCredentials(s *strings.Builder, title, hint string) {
	s.WriteString(promptStyle.Render(title) + "\n\n")
	s.WriteString(credLine("Username", m.userInput, m.credFocus == 0, false))
	s.WriteString(credLine("Password", m.passInput, m.credFocus == 1, true))
	s.WriteString("\n" + mutedStyle.Render("Enter to submit · "+hint) + "\n")
}

func credLine(label, value string, focused, masked bool) string {
	shown := value
	if masked {
		shown = strings.Repeat("•", len(value))
	}
	cursor := "  "
	if focused {
		cursor = "> "
		return cursor + label + ": " + inputStyle.Render(shown+"_") + "\n"
	}
	return cursor + label + ": " + shown + "\n"
}

func (m Model) renderDashboard(s *strings.Builder) {
	s.WriteString(promptStyle.Render("Hello, "+m.username) + "\n\n")

	var balance float64
	for _, tx := range m.txs {
		if tx.Type == core.Income {
			balance += tx.Amount
		} else {
			balance -= tx.Amount
		}
	}
	s.WriteString(fmt.Sprintf("Balance: %s\n\n", core.FormatAmount(balance)))

	if len(m.txs) == 0 {
		s.WriteString(mutedStyle.Render("No transactions yet. Press n to add one.") + "\n")
	}
	for i, tx := range m.txs {
		line := fmt.Sprintf("%s  %-20s %8s  %s/%s", tx.Date, tx.Description, core.FormatAmount(tx.Amount), tx.Type, tx.Card)
		if i == m.cursor {
			s.WriteString("> " + selectedStyle.Render(line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}

	s.WriteString("\n" + mutedStyle.Render("n new · Enter edit · d delete · i insights · r reload · l logout · q quit") + "\n")
}

func (m Model) renderForm(s *strings.Builder) {
	title := "New transaction"
	if m.form.rowIndex != 0 {
		title = "Edit transaction"
	}
	s.WriteString(promptStyle.Render(title) + "\n\n")

	f := m.form
	lines := []struct {
		label, value string
		choice       bool
	}{
		{"Date (YYYY-MM-DD)", f.date, false},
		{"Description", f.description, false},
		{"Amount", f.amount, false},
		{"Type", string(typeOptions[f.typeIdx]), true},
		{"Method", string(methodOptions[f.methodIdx]), true},
		{"Card", core.CardOptions[f.cardIdx].Name, true},
		{"Category", f.category, false},
	}
	for i, line := range lines {
		cursor := "  "
		value := line.value
		if i == f.focus {
			cursor = "> "
			if line.choice {
				value = selectedStyle.Render("← " + value + " →")
			} else {
				value = inputStyle.Render(value + "_")
			}
		}
		s.WriteString(fmt.Sprintf("%s%-18s %s\n", cursor, line.label+":", value))
	}

	s.WriteString("\n" + mutedStyle.Render("Enter next/submit · ←/→ change option · Esc cancel") + "\n")
}
