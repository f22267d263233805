// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestCatalog(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(PackFailedId) {
		t.Fatalf("expected %d issues, got %d", PackFailedId, len(values))
	}
	for i, is := range values {
		if is.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), i+1)
		}
		if strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", is.Id())
		}
		if Get(is.Id()) != is {
			t.Errorf("Get(%d) returned a different issue", is.Id())
		}
	}
	if Get(Id(999)) != nil {
		t.Error("Get of an unknown id should return nil")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(CoreModMissingId).Render("notty")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Core mod not found") {
		t.Errorf("rendered output missing heading: %q", out)
	}
}

func TestIssue_DocLinksAreCloned(t *testing.T) {
	t.Parallel()

	is := &Issue{id: 1, docLinks: []HttpLink{"https://example.com/a"}}
	links := is.DocLinks()
	links[0] = "changed"
	if is.DocLinks()[0] != "https://example.com/a" {
		t.Error("DocLinks must return a copy")
	}
}

func TestActionableError(t *testing.T) {
	t.Parallel()

	cause := errors.New("core mod not found")
	err := NewErrorContext().
		WithOperation("load mods").
		WithResource("Mods").
		WithIssue(CoreModMissingId).
		WithSuggestion("Add the core mod").
		WithSuggestions("Check mod_order.json", "Set core_mod").
		Wrap(cause).
		BuildError()

	if got := err.Error(); got != "failed to load mods: Mods: core mod not found" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *ActionableError, got %T", err)
	}
	if !ae.HasSuggestions() || len(ae.Suggestions) != 3 {
		t.Errorf("Suggestions = %v", ae.Suggestions)
	}

	formatted := ae.Format(false)
	if !strings.Contains(formatted, "• Check mod_order.json") || strings.Contains(formatted, "Error chain") {
		t.Errorf("Format(false) = %q", formatted)
	}
	if !strings.Contains(ae.Format(true), "Error chain:\n  1. core mod not found") {
		t.Errorf("Format(true) = %q", ae.Format(true))
	}

	if is := IssueOf(err); is == nil || is.Id() != CoreModMissingId {
		t.Errorf("IssueOf() = %v", is)
	}
	if IssueOf(cause) != nil {
		t.Error("plain errors carry no issue")
	}
}

func TestBuild_RequiresOperation(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError without operation should return nil")
	}
	if WrapWithOperation(nil, "x") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
}
