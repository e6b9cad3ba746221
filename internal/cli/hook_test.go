package cli

import (
	"strings"
	"testing"
)

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript("text", true, nil)

	if !strings.Contains(script, hookMarkerStart) {
		t.Error("Script missing start marker")
	}
	if !strings.Contains(script, hookMarkerEnd) {
		t.Error("Script missing end marker")
	}
	if !strings.Contains(script, "mender resolve --fail-on-new --format text --only-new\n") {
		t.Errorf("Script missing mender command with correct flags:\n%s", script)
	}
	if !strings.Contains(script, "MENDER_EXIT=$?") {
		t.Error("Script missing exit code capture")
	}
	if !strings.Contains(script, "exit 1") {
		t.Error("Script missing exit 1 for new results")
	}
	if !strings.Contains(script, "allowing commit") {
		t.Error("Script missing warning for errors")
	}
}

func TestGenerateHookScript_CustomFlags(t *testing.T) {
	script := generateHookScript("json", false, []string{"src", "lib"})

	if !strings.Contains(script, "--format json") {
		t.Error("Script doesn't use custom format")
	}
	if strings.Contains(script, "--only-new") {
		t.Error("Script should not pass --only-new")
	}
	if !strings.Contains(script, "--format json src lib\n") {
		t.Errorf("Script doesn't pass targets:\n%s", script)
	}
}

func TestReplaceSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	section := generateHookScript("text", true, nil)

	result := replaceSection(existing, section)

	if !strings.HasPrefix(result, "#!/bin/sh\nsome-other-hook\n") {
		t.Error("Existing content should be preserved")
	}
	if !strings.Contains(result, hookMarkerStart) {
		t.Error("New section should be appended")
	}
}

func TestReplaceSection_ExistingSection(t *testing.T) {
	oldSection := generateHookScript("text", true, nil)
	existing := "#!/bin/sh\nbefore\n" + oldSection + "after\n"
	newSection := generateHookScript("sarif", false, nil)

	result := replaceSection(existing, newSection)

	if !strings.Contains(result, "before") {
		t.Error("Content before mender section should be preserved")
	}
	if !strings.Contains(result, "after") {
		t.Error("Content after mender section should be preserved")
	}
	if !strings.Contains(result, "--format sarif") {
		t.Error("New section should have updated flags")
	}
	if strings.Contains(result, "--format text") {
		t.Error("Old section should be replaced")
	}
	if strings.Count(result, hookMarkerStart) != 1 {
		t.Error("Section should appear exactly once")
	}
}

func TestRemoveSection(t *testing.T) {
	section := generateHookScript("text", true, nil)
	existing := "#!/bin/sh\nbefore\n" + section + "after\n"

	result := removeSection(existing)

	if strings.Contains(result, hookMarkerStart) {
		t.Error("mender section should be removed")
	}
	if !strings.Contains(result, "before") {
		t.Error("Content before should be preserved")
	}
	if !strings.Contains(result, "after") {
		t.Error("Content after should be preserved")
	}
}

func TestRemoveSection_NoSection(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook\n"
	result := removeSection(existing)
	if result != existing {
		t.Error("Content without mender section should be unchanged")
	}
}

func TestReplaceSection_NoTrailingNewline(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook"
	section := generateHookScript("text", true, nil)

	result := replaceSection(existing, section)

	if !strings.Contains(result, "some-hook\n"+hookMarkerStart) {
		t.Error("Section should be appended on its own line")
	}
}
