package tui

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
)

func TestConfirmModelKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyPressMsg
		def  bool
		want ConfirmResult
	}{
		{"y", []tea.KeyPressMsg{{Code: 'y', Text: "y"}}, false, ConfirmYes},
		{"n", []tea.KeyPressMsg{{Code: 'n', Text: "n"}}, true, ConfirmNo},
		{"esc", []tea.KeyPressMsg{{Code: tea.KeyEscape}}, true, ConfirmCancelled},
		{"enter default no", []tea.KeyPressMsg{{Code: tea.KeyEnter}}, false, ConfirmNo},
		{"enter default yes", []tea.KeyPressMsg{{Code: tea.KeyEnter}}, true, ConfirmYes},
		{"tab then enter", []tea.KeyPressMsg{{Code: tea.KeyTab}, {Code: tea.KeyEnter}}, false, ConfirmYes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = newConfirmModel(ConfirmOptions{Prompt: "Delete?", Affirmative: "Yes", Negative: "No", Default: tt.def})
			var cmd tea.Cmd
			for _, k := range tt.keys {
				m, cmd = m.Update(k)
			}
			cm := m.(confirmModel)
			if cm.result != tt.want {
				t.Errorf("result = %v, want %v", cm.result, tt.want)
			}
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
		})
	}
}

func TestConfirmModelView(t *testing.T) {
	m := newConfirmModel(ConfirmOptions{Prompt: "Delete profile?", Detail: "file kept", Affirmative: "Yes", Negative: "No"})
	view := ansi.Strip(m.View().Content)
	for _, want := range []string{"Delete profile?", "file kept", "Yes", "No"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}
