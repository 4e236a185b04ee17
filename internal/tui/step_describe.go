package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

type describeStep struct {
	input textarea.Model
}

func newDescribeStep(wizard.StepInfo) (stepView, error) {
	ta := textarea.New()
	ta.Placeholder = "e.g. I need an NDA before showing our product roadmap to a potential partner"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(6)
	return &describeStep{input: ta}, nil
}

func (s *describeStep) Enter(w *wizardView) tea.Cmd {
	s.input.SetValue(w.State().UserInput)
	return s.input.Focus()
}

func (s *describeStep) Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return nil, false
		case "ctrl+s":
			return s.submit(w), true
		}
	}
	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if after := s.input.Value(); after != before {
		w.store.Dispatch(wizard.SetUserInput{Input: after})
	}
	return cmd, true
}

func (s *describeStep) submit(w *wizardView) tea.Cmd {
	input := s.input.Value()
	if err := wizard.ValidateUserInput(input); err != nil {
		return w.fail(err)
	}
	if !w.requireAI() {
		return nil
	}
	return w.call("Finding templates", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		var (
			suggested gateway.SuggestResult
			catalog   []contract.Template
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := api.SuggestTemplates(gctx, input)
			suggested = res
			return err
		})
		g.Go(func() error {
			res, err := api.ListTemplates(gctx)
			catalog = res
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.SetSuggestions{Suggestions: suggested.Suggestions})
			w.store.Dispatch(wizard.SetTemplates{Templates: catalog})
			if suggested.AIUsage != nil {
				w.store.Dispatch(wizard.UpdateAIUsage{Usage: *suggested.AIUsage})
			}
			w.store.Dispatch(wizard.SetSuccess{Message: fmt.Sprintf("%d templates suggested", len(suggested.Suggestions))})
			w.store.Dispatch(wizard.NextStep{})
			return nil
		}, nil
	})
}

func (s *describeStep) View(w *wizardView, width int) string {
	s.input.SetWidth(width)
	n := len([]rune(strings.TrimSpace(s.input.Value())))
	counter := mutedStyle.Render(fmt.Sprintf("%d characters", n))
	if n < wizard.MinUserInputLength {
		counter = warnStyle.Render(fmt.Sprintf("%d/%d characters", n, wizard.MinUserInputLength))
	}
	return s.input.View() + "\n" + counter
}

func (s *describeStep) Hints() string { return "ctrl+s find templates" }

func (s *describeStep) Editing() bool { return true }

// templateChoice is one selectable row: an AI suggestion or a catalog entry.
type templateChoice struct {
	template   contract.Template
	confidence float64
	reasoning  string
	suggested  bool
}

type templateStep struct {
	cursor int
}

func newTemplateStep(wizard.StepInfo) (stepView, error) {
	return &templateStep{}, nil
}

func templateChoices(st wizard.State) []templateChoice {
	seen := map[string]bool{}
	var out []templateChoice
	for _, s := range st.Suggestions {
		seen[s.Template.ID] = true
		out = append(out, templateChoice{template: s.Template, confidence: s.Confidence, reasoning: s.Reasoning, suggested: true})
	}
	for _, t := range st.Templates {
		if seen[t.ID] {
			continue
		}
		out = append(out, templateChoice{template: t})
	}
	return out
}

func (s *templateStep) Enter(w *wizardView) tea.Cmd {
	st := w.State()
	choices := templateChoices(st)
	if st.SelectedTemplate != nil {
		for i, c := range choices {
			if c.template.ID == st.SelectedTemplate.ID {
				s.cursor = i
			}
		}
	}
	if len(st.Templates) > 0 {
		return nil
	}
	return w.background("Loading templates", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		templates, err := api.ListTemplates(ctx)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.SetTemplates{Templates: templates})
			return nil
		}, nil
	})
}

func (s *templateStep) Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}
	choices := templateChoices(w.State())
	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(choices)-1 {
			s.cursor++
		}
	case "enter":
		if s.cursor >= len(choices) {
			return nil, true
		}
		return s.choose(w, choices[s.cursor].template), true
	default:
		return nil, false
	}
	return nil, true
}

func (s *templateStep) choose(w *wizardView, tpl contract.Template) tea.Cmd {
	st := w.State()
	load := func() tea.Cmd {
		return w.call("Loading template", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
			full, err := api.GetTemplate(ctx, tpl.ID)
			if err != nil {
				return nil, err
			}
			return func(w *wizardView) tea.Cmd {
				w.store.Dispatch(wizard.SelectTemplate{Template: full})
				w.store.Dispatch(wizard.NextStep{})
				return nil
			}, nil
		})
	}
	if st.CurrentContract != nil && st.SelectedTemplate != nil && st.SelectedTemplate.ID != tpl.ID {
		w.ask(fmt.Sprintf("Switch to %q? The current contract draft will be discarded.", tpl.Name), load)
		return nil
	}
	return load()
}

func (s *templateStep) View(w *wizardView, width int) string {
	st := w.State()
	choices := templateChoices(st)
	if len(choices) == 0 {
		return mutedStyle.Render("No templates yet. Go back and describe what you need.")
	}
	var b strings.Builder
	for i, c := range choices {
		marker := "  "
		if i == s.cursor {
			marker = "› "
		}
		label := c.template.Name
		if c.suggested {
			label = fmt.Sprintf("%s  %s", label, okStyle.Render(fmt.Sprintf("%.0f%% match", c.confidence*100)))
		} else {
			label = fmt.Sprintf("%s  %s", label, mutedStyle.Render(c.template.ContractType))
		}
		if st.SelectedTemplate != nil && st.SelectedTemplate.ID == c.template.ID {
			label += " " + okStyle.Render("✓")
		}
		if i == s.cursor {
			label = selectedLine.Render(marker) + label
		} else {
			label = marker + label
		}
		b.WriteString(label)
		b.WriteString("\n")
		if i == s.cursor {
			detail := c.reasoning
			if detail == "" {
				detail = c.template.Description
			}
			if detail != "" {
				b.WriteString(mutedStyle.Render("    " + truncate(detail, width-4)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func (s *templateStep) Hints() string { return "↑/↓ choose · enter select" }

func (s *templateStep) Editing() bool { return false }
