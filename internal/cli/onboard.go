package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joebot/aminobot/internal/config"
)

// --- onboard selection model ---

type onboardChoice int

const (
	choiceUpgrade onboardChoice = iota
	choiceOverwrite
	choiceSkip
)

type onboardModel struct {
	path    string
	choices []string
	cursor  int
	chosen  bool
	choice  onboardChoice
}

func (m onboardModel) Init() tea.Cmd { return nil }

func (m onboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.choice = choiceSkip
			m.chosen = true
			return m, tea.Quit
		case tea.KeyUp, tea.KeyShiftTab:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown, tea.KeyTab:
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case tea.KeyEnter:
			m.choice = onboardChoice(m.cursor)
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m onboardModel) View() string {
	if m.chosen {
		return ""
	}

	s := "\n"
	s += fmt.Sprintf("  Config already exists at %s\n\n", DimStyle.Render(m.path))

	for i, choice := range m.choices {
		cursor := "  "
		if i == m.cursor {
			cursor = PromptStyle.Render("❯ ")
		}
		s += "  " + cursor + choice + "\n"
	}

	s += "\n" + DimStyle.Render("  ↑/↓ navigate · enter select · ctrl+c cancel") + "\n"
	return s
}

// --- credentials prompt model ---

type credentialField struct {
	label  string
	target *string
}

type credentialsModel struct {
	fields    []credentialField
	inputs    []textinput.Model
	focus     int
	done      bool
	cancelled bool
}

func newCredentialsModel(fields []credentialField, secret map[string]bool) credentialsModel {
	m := credentialsModel{fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, f := range fields {
		in := textinput.New()
		in.Prompt = "  " + PromptStyle.Render(fmt.Sprintf("%-8s", f.label)) + " "
		in.Width = 60
		if secret[f.label] {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs[i] = in
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m credentialsModel) Init() tea.Cmd { return textinput.Blink }

func (m credentialsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter, tea.KeyTab, tea.KeyDown:
			if key.Type == tea.KeyEnter && m.focus == len(m.inputs)-1 {
				m.done = true
				return m, tea.Quit
			}
			cmd := m.move(1)
			return m, cmd
		case tea.KeyShiftTab, tea.KeyUp:
			cmd := m.move(-1)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *credentialsModel) move(delta int) tea.Cmd {
	next := m.focus + delta
	if next < 0 || next >= len(m.inputs) {
		return nil
	}
	m.inputs[m.focus].Blur()
	m.focus = next
	return m.inputs[m.focus].Focus()
}

func (m credentialsModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n  " + BoldStyle.Render("Credentials") + "\n\n")
	for _, in := range m.inputs {
		sb.WriteString(in.View() + "\n")
	}
	sb.WriteString("\n" + DimStyle.Render("  tab next · enter confirm · esc skip") + "\n")
	return sb.String()
}

// apply copies non-empty answers into their targets.
func (m credentialsModel) apply() {
	for i, f := range m.fields {
		if v := strings.TrimSpace(m.inputs[i].Value()); v != "" {
			*f.target = v
		}
	}
}

// RunOnboard runs the onboard wizard against the config at cfgPath.
func RunOnboard(cfgPath string) error {
	var cfg *config.Config

	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s aminobot Onboard", Logo)))

	if _, err := os.Stat(cfgPath); err == nil {
		m := onboardModel{
			path: cfgPath,
			choices: []string{
				"Upgrade: add new fields, keep existing values",
				"Overwrite: replace with fresh defaults",
				"Skip: do not modify config",
			},
		}
		final, err := tea.NewProgram(m).Run()
		if err != nil {
			return err
		}

		fmt.Println()
		switch final.(onboardModel).choice {
		case choiceUpgrade:
			if cfg, err = config.UpgradeAt(cfgPath); err != nil {
				return err
			}
			fmt.Println("  " + OkStyle.Render("✓") + " Upgraded config")
		case choiceOverwrite:
			cfg = config.DefaultConfig()
			if err := config.SaveTo(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Println("  " + OkStyle.Render("✓") + " Overwritten config")
		default:
			fmt.Println("  " + DimStyle.Render("Config unchanged"))
			if cfg, err = config.LoadFrom(cfgPath); err != nil {
				return err
			}
		}
	} else {
		cfg = config.DefaultConfig()
		if err := config.SaveTo(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("  " + OkStyle.Render("✓") + " Created config at " + DimStyle.Render(cfgPath))
	}

	if err := promptCredentials(cfg, cfgPath); err != nil {
		return err
	}

	fmt.Println()
	if cfg.HasCredentials() {
		fmt.Println(OkStyle.Render("  aminobot is ready!"))
		fmt.Println()
		fmt.Println(DimStyle.Render("  Next: aminobot run"))
	} else {
		fmt.Println(DimStyle.Render("  Next steps:"))
		fmt.Println(DimStyle.Render("  1. Add deviceId, key and session to " + cfgPath))
		fmt.Println(DimStyle.Render("     or set " + config.EnvDeviceID + ", " + config.EnvKey + ", " + config.EnvSession))
		fmt.Println(DimStyle.Render("  2. Start: aminobot run"))
	}
	fmt.Println()
	return nil
}

// promptCredentials asks for any missing credential and saves the answers.
func promptCredentials(cfg *config.Config, cfgPath string) error {
	var fields []credentialField
	if cfg.Auth.DeviceID == "" {
		fields = append(fields, credentialField{"Device", &cfg.Auth.DeviceID})
	}
	if cfg.Auth.Key == "" {
		fields = append(fields, credentialField{"Key", &cfg.Auth.Key})
	}
	if cfg.Auth.Session == "" {
		fields = append(fields, credentialField{"Session", &cfg.Auth.Session})
	}
	if len(fields) == 0 {
		return nil
	}

	m := newCredentialsModel(fields, map[string]bool{"Key": true, "Session": true})
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	fm := final.(credentialsModel)
	if fm.cancelled {
		fmt.Println("  " + DimStyle.Render("Credentials skipped"))
		return nil
	}
	fm.apply()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTo(cfg, cfgPath); err != nil {
		return err
	}
	fmt.Println("  " + OkStyle.Render("✓") + " Saved credentials")
	return nil
}
