package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/JourneyJu/dsg-sub008/internal/cli/formatter"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/reconcile"
	"github.com/JourneyJu/dsg-sub008/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// validationBoard keeps the latest field errors per section. Engines report
// into it from whichever goroutine changed them, so it is locked.
type validationBoard struct {
	mu         sync.Mutex
	errs       map[domain.PlanType][]reconcile.FieldError
	subscribed map[domain.PlanType]bool
}

func newValidationBoard() *validationBoard {
	return &validationBoard{
		errs:       make(map[domain.PlanType][]reconcile.FieldError),
		subscribed: make(map[domain.PlanType]bool),
	}
}

// watch subscribes to every engine of ws not yet watched.
func (b *validationBoard) watch(ws *service.Workspace) {
	for _, pt := range ws.PlanTypes() {
		b.mu.Lock()
		seen := b.subscribed[pt]
		b.subscribed[pt] = true
		b.mu.Unlock()
		if seen {
			continue
		}
		eng, _ := ws.Engine(pt)
		eng.Subscribe(func(ev reconcile.RevalidateEvent) { b.set(ev.PlanType, ev.Errors) })
		b.set(pt, eng.Validate())
	}
}

func (b *validationBoard) set(pt domain.PlanType, errs []reconcile.FieldError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[pt] = errs
}

func (b *validationBoard) get(pt domain.PlanType) []reconcile.FieldError {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errs[pt]
}

type tuiMode int

const (
	modeBrowse tuiMode = iota
	modeForm
)

type tuiKeyMap struct {
	NextTab, PrevTab      key.Binding
	Up, Down              key.Binding
	NextPage, PrevPage    key.Binding
	Column, Filter, Clear key.Binding
	Edit, Meta            key.Binding
	Submit, Reload, Quit  key.Binding
}

var tuiKeys = tuiKeyMap{
	NextTab:  key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next type")),
	PrevTab:  key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev type")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	NextPage: key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
	PrevPage: key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev page")),
	Column:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "column")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	Clear:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
	Edit:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit actual")),
	Meta:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "edit plan")),
	Submit:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "submit")),
	Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type submitDoneMsg struct {
	res *service.SubmitResult
	err error
}

type reloadDoneMsg struct{ err error }

type metaDoneMsg struct {
	planID string
	err    error
}

// evalModel is the bubbletea model of one opened evaluation. Each plan type
// is a tab; the selected tab's current page is shown as a table.
type evalModel struct {
	ctx   context.Context
	svc   service.EvaluationService
	ws    *service.Workspace
	board *validationBoard

	tab    int
	cursor int
	column int

	mode     tuiMode
	form     *huh.Form
	formDone func() tea.Cmd

	busy     bool
	status   string
	quitting bool
	width    int
}

func newEvalModel(ctx context.Context, svc service.EvaluationService, ws *service.Workspace) *evalModel {
	m := &evalModel{ctx: ctx, svc: svc, ws: ws, board: newValidationBoard()}
	m.board.watch(ws)
	return m
}

func (m *evalModel) Init() tea.Cmd { return nil }

func (m *evalModel) currentType() (domain.PlanType, *reconcile.Engine, bool) {
	types := m.ws.PlanTypes()
	if len(types) == 0 {
		return "", nil, false
	}
	if m.tab >= len(types) {
		m.tab = len(types) - 1
	}
	pt := types[m.tab]
	eng, ok := m.ws.Engine(pt)
	return pt, eng, ok
}

func (m *evalModel) currentDimension(eng *reconcile.Engine) domain.Dimension {
	dims := eng.Config().Dimensions
	if m.column >= len(dims) {
		m.column = 0
	}
	return dims[m.column]
}

func (m *evalModel) selectedRow(eng *reconcile.Engine) (domain.PlanItem, bool) {
	rows := eng.PageRows()
	if len(rows) == 0 {
		return domain.PlanItem{}, false
	}
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	return rows[m.cursor], true
}

func (m *evalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case submitDoneMsg:
		m.busy = false
		m.board.watch(m.ws)
		m.status = submitStatus(msg.res, msg.err)
		return m, nil

	case reloadDoneMsg:
		m.busy = false
		m.board.watch(m.ws)
		if msg.err != nil {
			m.status = formatter.StyleRed.Render("Reload failed: " + msg.err.Error())
		} else {
			m.status = formatter.Dim("Reloaded.")
		}
		return m, nil

	case metaDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = formatter.StyleRed.Render(fmt.Sprintf("Update of %s failed: %v", msg.planID, msg.err))
		} else {
			m.status = formatter.StyleGreen.Render("✔ Updated " + msg.planID)
		}
		return m, nil
	}

	if m.mode == modeForm {
		return m.updateForm(msg)
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		return m.updateBrowse(k)
	}
	return m, nil
}

func (m *evalModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		m.closeForm()
		m.status = formatter.Dim("Cancelled.")
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		done := m.formDone
		m.closeForm()
		if done != nil {
			return m, done()
		}
		return m, nil
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

func (m *evalModel) closeForm() {
	m.mode = modeBrowse
	m.form = nil
	m.formDone = nil
}

func (m *evalModel) updateBrowse(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(k, tuiKeys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy {
		m.status = formatter.StyleYellow.Render(service.ErrBusy.Error())
		return m, nil
	}

	pt, eng, ok := m.currentType()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(k, tuiKeys.NextTab):
		m.tab = (m.tab + 1) % len(m.ws.PlanTypes())
		m.cursor, m.column = 0, 0
	case key.Matches(k, tuiKeys.PrevTab):
		n := len(m.ws.PlanTypes())
		m.tab = (m.tab + n - 1) % n
		m.cursor, m.column = 0, 0
	case key.Matches(k, tuiKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(k, tuiKeys.Down):
		if m.cursor < len(eng.PageRows())-1 {
			m.cursor++
		}
	case key.Matches(k, tuiKeys.NextPage):
		eng.SetPage(eng.Page() + 1)
		m.cursor = 0
	case key.Matches(k, tuiKeys.PrevPage):
		eng.SetPage(eng.Page() - 1)
		m.cursor = 0
	case key.Matches(k, tuiKeys.Column):
		m.column = (m.column + 1) % len(eng.Config().Dimensions)
	case key.Matches(k, tuiKeys.Filter):
		d := m.currentDimension(eng)
		next := eng.FilterFor(d.ActualField).Next()
		if err := m.ws.ApplyFilter(pt, next, d.ActualField, d.TargetField); err != nil {
			m.status = formatter.StyleRed.Render(err.Error())
			break
		}
		m.cursor = 0
		m.status = formatter.FilterBadge(d.Label, next)
	case key.Matches(k, tuiKeys.Clear):
		eng.ClearFilters()
		m.cursor = 0
		m.status = formatter.Dim("Filters cleared.")
	case key.Matches(k, tuiKeys.Edit):
		return m, m.openActualForm(pt, eng)
	case key.Matches(k, tuiKeys.Meta):
		return m, m.openMetaForm(eng)
	case key.Matches(k, tuiKeys.Submit):
		m.busy = true
		m.status = formatter.StyleYellow.Render("Submitting…")
		return m, m.submitCmd()
	case key.Matches(k, tuiKeys.Reload):
		m.busy = true
		m.status = formatter.Dim("Reloading…")
		return m, m.reloadCmd()
	}
	return m, nil
}

func (m *evalModel) openActualForm(pt domain.PlanType, eng *reconcile.Engine) tea.Cmd {
	row, ok := m.selectedRow(eng)
	if !ok {
		return nil
	}
	d := m.currentDimension(eng)

	desc := "no target set"
	if t, ok := row.Target(d.TargetField); ok {
		desc = fmt.Sprintf("target %d", t)
	}
	value := row.Actual(d.ActualField)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s · %s", row.PlanName, d.Label)).
				Description(desc).
				Value(&value).
				Validate(func(s string) error { return reconcile.ValidateValue(d, &row, s) }),
		),
	).WithTheme(dsgHuhTheme()).WithShowHelp(false)

	m.formDone = func() tea.Cmd {
		m.applyActual(pt, row.ID, d.ActualField, value)
		return nil
	}
	m.mode = modeForm
	return m.form.Init()
}

// applyActual writes an edited value into the section and refreshes its
// validation state.
func (m *evalModel) applyActual(pt domain.PlanType, rowID, field, value string) {
	rowErrs, err := m.ws.SetActual(pt, rowID, field, value)
	if err != nil {
		m.status = formatter.StyleRed.Render(err.Error())
		return
	}
	if eng, ok := m.ws.Engine(pt); ok {
		m.board.set(pt, eng.Validate())
	}
	if len(rowErrs) > 0 {
		m.status = formatter.StyleYellow.Render(rowErrs[0].Error())
		return
	}
	m.status = formatter.StyleGreen.Render(fmt.Sprintf("✔ %s %s = %s", rowID, field, value))
}

func (m *evalModel) openMetaForm(eng *reconcile.Engine) tea.Cmd {
	row, ok := m.selectedRow(eng)
	if !ok {
		return nil
	}
	meta := row.Meta()
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Plan name").Value(&meta.PlanName),
			huh.NewInput().Title("Owner").Value(&meta.Owner),
			huh.NewText().Title("Description").Value(&meta.Description),
		),
	).WithTheme(dsgHuhTheme()).WithShowHelp(false)

	m.formDone = func() tea.Cmd {
		m.busy = true
		return m.updateMetaCmd(row.ID, meta)
	}
	m.mode = modeForm
	return m.form.Init()
}

func (m *evalModel) submitCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.Submit(m.ctx, m.ws)
		return submitDoneMsg{res: res, err: err}
	}
}

func (m *evalModel) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		return reloadDoneMsg{err: m.svc.Reload(m.ctx, m.ws)}
	}
}

func (m *evalModel) updateMetaCmd(planID string, meta domain.PlanMeta) tea.Cmd {
	return func() tea.Msg {
		return metaDoneMsg{planID: planID, err: m.svc.UpdatePlan(m.ctx, m.ws, planID, meta)}
	}
}

func submitStatus(res *service.SubmitResult, err error) string {
	var subErr *service.SubmissionError
	switch {
	case errors.As(err, &subErr):
		var parts []string
		for _, s := range subErr.Sections {
			cfg, _ := domain.ConfigFor(s.PlanType)
			parts = append(parts, fmt.Sprintf("%s (%d)", cfg.Label, len(s.Errors)))
		}
		return formatter.StyleRed.Render("Fix invalid values in: " + strings.Join(parts, ", "))
	case err != nil:
		return formatter.StyleRed.Render("Submit failed: " + err.Error())
	default:
		return formatter.FormatSubmitResult(res)
	}
}

func planTableData(eng *reconcile.Engine) formatter.PlanTableData {
	return formatter.PlanTableData{
		Config:     eng.Config(),
		Rows:       eng.PageRows(),
		Errors:     eng.Validate(),
		Filters:    eng.Filters(),
		Page:       eng.Page(),
		TotalPages: eng.TotalPages(),
		Displayed:  len(eng.Displayed()),
	}
}

func (m *evalModel) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeForm && m.form != nil {
		return m.form.View()
	}

	var b strings.Builder
	t := m.ws.Target()
	b.WriteString(formatter.Bold(t.Name) + "  " + formatter.TargetStatusPill(t.Status) + "\n")
	b.WriteString(m.tabsView() + "\n\n")

	pt, eng, ok := m.currentType()
	if !ok {
		b.WriteString(formatter.Dim("This target has no plans.") + "\n")
		return b.String()
	}
	data := planTableData(eng)
	data.Errors = m.board.get(pt)
	if row, ok := m.selectedRow(eng); ok {
		data.Selected = row.ID
	}
	b.WriteString(formatter.FormatPlanTable(data) + "\n")
	if len(eng.Config().Dimensions) > 1 {
		b.WriteString(formatter.Dim("column: "+m.currentDimension(eng).Label) + "\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(m.helpView())
	return b.String()
}

func (m *evalModel) tabsView() string {
	var tabs []string
	for i, pt := range m.ws.PlanTypes() {
		cfg, _ := domain.ConfigFor(pt)
		label := cfg.Label
		if n := len(m.board.get(pt)); n > 0 {
			label += fmt.Sprintf(" (%d)", n)
		}
		if i == m.tab {
			tabs = append(tabs, formatter.StyleHeader.Render("["+label+"]"))
		} else {
			tabs = append(tabs, formatter.Dim(" "+label+" "))
		}
	}
	return strings.Join(tabs, " ")
}

func (m *evalModel) helpView() string {
	bindings := []key.Binding{
		tuiKeys.NextTab, tuiKeys.NextPage, tuiKeys.Column, tuiKeys.Filter,
		tuiKeys.Edit, tuiKeys.Meta, tuiKeys.Submit, tuiKeys.Reload, tuiKeys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+formatter.Dim(h.Desc))
	}
	return strings.Join(parts, "  ")
}
