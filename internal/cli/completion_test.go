package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompletionScripts(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			r := newRoot(&bytes.Buffer{})
			r.cmd.SetOut(&out)
			if err := r.runWith(context.Background(), []string{"completion", shell}); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), appName) {
				t.Errorf("%s completion does not mention %s", shell, appName)
			}
		})
	}
}

func TestCompleteDataset(t *testing.T) {
	exts, directive := completeDataset(nil, nil, "")
	if directive != cobra.ShellCompDirectiveFilterFileExt || len(exts) != 4 {
		t.Errorf("first arg: %v, %v", exts, directive)
	}
	if _, directive := completeDataset(nil, []string{"a.json"}, ""); directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("second arg directive = %v", directive)
	}
}
