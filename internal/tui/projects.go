package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/store"
)

var projectColors = []string{"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}

type rowKind int

const (
	rowCategory rowKind = iota
	rowProject
	rowTask
)

// treeRow is one line of the category > project > task tree.
type treeRow struct {
	kind     rowKind
	id       int64
	depth    int
	name     string
	color    string
	archived bool
	tags     []string

	category *models.Category
	project  *models.Project
	task     *models.Task
}

type formKind int

const (
	formNone formKind = iota
	formNewCategory
	formEditCategory
	formNewProject
	formEditProject
	formNewTask
	formEditTask
	formTags
	formDeleteCategory
)

type projectsModel struct {
	deps
	width  int
	height int

	rows         []treeRow
	cursor       int
	showArchived bool

	formActive bool
	form       *huh.Form
	formKind   formKind
	target     treeRow

	// Form field pointers (survive value copies)
	formName    *string
	formColor   *string
	formNote    *string
	formTags    *string
	formConfirm *bool
}

func newProjectsModel(d deps) projectsModel {
	name, color, note, tags, confirm := "", projectColors[0], "", "", false
	return projectsModel{
		deps:        d,
		formName:    &name,
		formColor:   &color,
		formNote:    &note,
		formTags:    &tags,
		formConfirm: &confirm,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type projectsDataMsg struct {
	rows []treeRow
}

func (p projectsModel) refresh() tea.Cmd {
	showArchived := p.showArchived
	return func() tea.Msg {
		rows, err := buildTree(p.store, showArchived)
		if err != nil {
			return errStatus("Load projects", err)
		}
		return projectsDataMsg{rows: rows}
	}
}

// buildTree flattens the hierarchy in display order. Subtasks follow their
// parent one level deeper.
func buildTree(s *store.Store, includeArchived bool) ([]treeRow, error) {
	cats, err := s.ListCategories()
	if err != nil {
		return nil, err
	}
	projects, err := s.ListProjects(0, includeArchived)
	if err != nil {
		return nil, err
	}
	tasks, err := s.ListTasks(0, includeArchived)
	if err != nil {
		return nil, err
	}
	tagsByTask, err := s.TagsByTask()
	if err != nil {
		return nil, err
	}

	projectsByCat := make(map[int64][]models.Project)
	for _, pr := range projects {
		projectsByCat[pr.CategoryID] = append(projectsByCat[pr.CategoryID], pr)
	}
	present := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		present[t.ID] = true
	}
	children := make(map[int64][]models.Task)
	roots := make(map[int64][]models.Task)
	for _, t := range tasks {
		if t.ParentTaskID != nil && present[*t.ParentTaskID] {
			children[*t.ParentTaskID] = append(children[*t.ParentTaskID], t)
		} else {
			roots[t.ProjectID] = append(roots[t.ProjectID], t)
		}
	}

	var rows []treeRow
	var addTask func(t models.Task, depth int)
	addTask = func(t models.Task, depth int) {
		rows = append(rows, treeRow{
			kind: rowTask, id: t.ID, depth: depth, name: t.Name,
			archived: t.Archived, tags: tagsByTask[t.ID], task: &t,
		})
		for _, c := range children[t.ID] {
			addTask(c, depth+1)
		}
	}

	for _, c := range cats {
		rows = append(rows, treeRow{kind: rowCategory, id: c.ID, name: c.Name, category: &c})
		for _, pr := range projectsByCat[c.ID] {
			rows = append(rows, treeRow{
				kind: rowProject, id: pr.ID, depth: 1, name: pr.Name,
				color: pr.Color, archived: pr.Archived, project: &pr,
			})
			for _, t := range roots[pr.ID] {
				addTask(t, 2)
			}
		}
	}
	return rows, nil
}

func (p projectsModel) selected() (treeRow, bool) {
	if p.cursor < 0 || p.cursor >= len(p.rows) {
		return treeRow{}, false
	}
	return p.rows[p.cursor], true
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.rows = msg.rows
		if p.cursor >= len(p.rows) {
			p.cursor = max(0, len(p.rows)-1)
		}
		return p, nil

	case tea.KeyMsg:
		return p.updateTree(msg)
	}
	return p, nil
}

func (p projectsModel) updateTree(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	row, ok := p.selected()

	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.rows)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Toggle):
		p.showArchived = !p.showArchived
		return p, p.refresh()
	case key.Matches(msg, keys.NewTop):
		return p.showForm(formNewCategory, treeRow{})
	case key.Matches(msg, keys.New):
		if !ok {
			return p.showForm(formNewCategory, treeRow{})
		}
		switch row.kind {
		case rowCategory:
			return p.showForm(formNewProject, row)
		default:
			return p.showForm(formNewTask, row)
		}
	case key.Matches(msg, keys.Edit):
		if !ok {
			return p, nil
		}
		switch row.kind {
		case rowCategory:
			return p.showForm(formEditCategory, row)
		case rowProject:
			return p.showForm(formEditProject, row)
		case rowTask:
			return p.showForm(formEditTask, row)
		}
	case key.Matches(msg, keys.Tags):
		if ok && row.kind == rowTask {
			return p.showForm(formTags, row)
		}
	case key.Matches(msg, keys.Delete):
		if !ok {
			return p, nil
		}
		switch row.kind {
		case rowCategory:
			return p.showForm(formDeleteCategory, row)
		case rowProject:
			return p, p.runWrite(func() error { return p.store.ArchiveProject(row.id, !row.archived) })
		case rowTask:
			return p, p.runWrite(func() error { return p.store.ArchiveTask(row.id, !row.archived) })
		}
	case key.Matches(msg, keys.Start), key.Matches(msg, keys.Enter):
		if ok && row.kind == rowTask && !row.archived {
			id := row.id
			return p, func() tea.Msg { return startTaskMsg{taskID: id} }
		}
	}
	return p, nil
}

// runWrite performs a store write off the update loop and refreshes the
// tree, reporting any error in the status bar.
func (p projectsModel) runWrite(fn func() error) tea.Cmd {
	showArchived := p.showArchived
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errStatus("Save", err)
		}
		rows, err := buildTree(p.store, showArchived)
		if err != nil {
			return errStatus("Load projects", err)
		}
		return projectsDataMsg{rows: rows}
	}
}

func requireName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

func validateTags(s string) error {
	for _, t := range splitTags(s) {
		if _, err := store.NormalizeTag(t); err != nil {
			return err
		}
	}
	return nil
}

func splitTags(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p projectsModel) showForm(kind formKind, row treeRow) (projectsModel, tea.Cmd) {
	p.formKind = kind
	p.target = row
	*p.formName = ""
	*p.formNote = ""
	*p.formTags = ""
	*p.formColor = projectColors[0]
	*p.formConfirm = false

	colorOptions := make([]huh.Option[string], len(projectColors))
	for i, c := range projectColors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("● %s", c), c)
	}
	nameInput := func(title string) *huh.Input {
		return huh.NewInput().Title(title).Value(p.formName).Validate(requireName)
	}

	var group *huh.Group
	switch kind {
	case formNewCategory:
		group = huh.NewGroup(nameInput("Category Name"))
	case formEditCategory:
		*p.formName = row.name
		group = huh.NewGroup(nameInput("Category Name"))
	case formNewProject:
		group = huh.NewGroup(
			nameInput("Project Name"),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
		)
	case formEditProject:
		*p.formName = row.name
		if row.color != "" {
			*p.formColor = row.color
		}
		group = huh.NewGroup(
			nameInput("Project Name"),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
		)
	case formNewTask:
		group = huh.NewGroup(
			nameInput("Task Name"),
			huh.NewInput().Title("Note").Value(p.formNote),
			huh.NewInput().Title("Tags (comma-separated)").Value(p.formTags).Validate(validateTags),
		)
	case formEditTask:
		*p.formName = row.name
		*p.formNote = row.task.Note
		group = huh.NewGroup(
			nameInput("Task Name"),
			huh.NewInput().Title("Note").Value(p.formNote),
		)
	case formTags:
		*p.formTags = strings.Join(row.tags, ", ")
		group = huh.NewGroup(
			huh.NewInput().Title("Tags for "+row.name).
				Description("lowercase letters, digits, - and _").
				Value(p.formTags).Validate(validateTags),
		)
	case formDeleteCategory:
		group = huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", row.name)).
				Description("Its projects, tasks and entries are deleted too.").
				Value(p.formConfirm),
		)
	default:
		return p, nil
	}

	p.form = huh.NewForm(group).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	switch p.form.State {
	case huh.StateCompleted:
		p.formActive = false
		return p, p.runWrite(p.submit())
	case huh.StateAborted:
		p.formActive = false
		p.form = nil
		return p, nil
	}
	return p, cmd
}

// submit captures the form values and returns the write to perform.
func (p projectsModel) submit() func() error {
	s := p.store
	row := p.target
	name := strings.TrimSpace(*p.formName)
	color := *p.formColor
	note := *p.formNote
	tags := splitTags(*p.formTags)
	confirmed := *p.formConfirm

	switch p.formKind {
	case formNewCategory:
		return func() error {
			_, err := s.CreateCategory(name, 0)
			return err
		}
	case formEditCategory:
		return func() error { return s.UpdateCategory(row.id, name, row.category.SortOrder) }
	case formNewProject:
		return func() error {
			_, err := s.CreateProject(row.id, name, color, 0)
			return err
		}
	case formEditProject:
		pr := *row.project
		pr.Name, pr.Color = name, color
		return func() error { return s.UpdateProject(pr) }
	case formNewTask:
		projectID := row.id
		var parentID *int64
		if row.kind == rowTask {
			projectID = row.task.ProjectID
			id := row.id
			parentID = &id
		}
		return func() error {
			t, err := s.CreateTask(projectID, parentID, name, note, 0)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				return nil
			}
			return s.SetTaskTags(t.ID, tags)
		}
	case formEditTask:
		t := *row.task
		t.Name, t.Note = name, note
		return func() error { return s.UpdateTask(t) }
	case formTags:
		return func() error { return s.SetTaskTags(row.id, tags) }
	case formDeleteCategory:
		if !confirmed {
			return func() error { return nil }
		}
		return func() error { return s.DeleteCategory(row.id) }
	}
	return func() error { return nil }
}

func (p projectsModel) formTitle() string {
	switch p.formKind {
	case formNewCategory:
		return "New Category"
	case formEditCategory:
		return "Edit Category"
	case formNewProject:
		return "New Project in " + p.target.name
	case formEditProject:
		return "Edit Project"
	case formNewTask:
		if p.target.kind == rowTask {
			return "New Subtask of " + p.target.name
		}
		return "New Task in " + p.target.name
	case formEditTask:
		return "Edit Task"
	case formTags:
		return "Task Tags"
	case formDeleteCategory:
		return "Delete Category"
	}
	return ""
}

func (p projectsModel) view() string {
	w := p.width - 4
	if p.formActive && p.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(p.formTitle()), "", p.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Projects")
	if p.showArchived {
		title += mutedStyle.Render("  (showing archived)")
	}

	if len(p.rows) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("Nothing here yet. Press N to create a category."),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title, ""}
	for i, r := range p.rows {
		rows = append(rows, p.renderRow(r, i == p.cursor))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  N: category  n: add child  e: edit  t: tags  d: delete/archive  s: start  a: archived"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p projectsModel) renderRow(r treeRow, selected bool) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}
	indent := strings.Repeat("  ", r.depth)

	var label string
	switch r.kind {
	case rowCategory:
		label = categoryStyle.Render(r.name)
	case rowProject:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(r.color)).Render("●")
		label = dot + " " + r.name
	case rowTask:
		label = "· " + r.name
	}

	style := normalItemStyle
	if r.archived {
		style = archivedStyle
	}
	if selected {
		style = selectedItemStyle
	}
	line := style.Render(cursor+indent) + style.Render(label)
	if r.archived {
		line += archivedStyle.Render(" (archived)")
	}
	if len(r.tags) > 0 {
		line += mutedStyle.Render(" [" + strings.Join(r.tags, ", ") + "]")
	}
	return line
}
