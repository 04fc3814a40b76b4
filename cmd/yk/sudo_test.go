package main

import (
	"strings"
	"testing"
)

func TestSudoCommands(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := runCmd(t, "", "sudo", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sudo list: %v", err)
	}
	if strings.TrimSpace(out) != "100\towner" {
		t.Errorf("initial list = %q", out)
	}

	out, err = runCmd(t, "", "sudo", "add", "7", "--config", cfgPath)
	if err != nil || !strings.Contains(out, "7 is now a sudoer") {
		t.Fatalf("sudo add = (%q, %v)", out, err)
	}
	out, _ = runCmd(t, "", "sudo", "add", "7", "--config", cfgPath)
	if !strings.Contains(out, "already a sudoer") {
		t.Errorf("second add = %q", out)
	}

	out, _ = runCmd(t, "", "sudo", "list", "--config", cfgPath)
	if !strings.Contains(out, "7\tsudo") {
		t.Errorf("list after add = %q", out)
	}

	if _, err := runCmd(t, "", "sudo", "remove", "100", "--config", cfgPath); err == nil || !strings.Contains(err.Error(), "owner") {
		t.Errorf("removing an owner: err = %v", err)
	}
	out, err = runCmd(t, "", "sudo", "remove", "7", "--config", cfgPath)
	if err != nil || !strings.Contains(out, "no longer a sudoer") {
		t.Errorf("sudo remove = (%q, %v)", out, err)
	}
	out, _ = runCmd(t, "", "sudo", "remove", "7", "--config", cfgPath)
	if !strings.Contains(out, "is not a sudoer") {
		t.Errorf("second remove = %q", out)
	}
}

func TestSudoAdd_InvalidID(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	for _, id := range []string{"abc", "-5", "0"} {
		_, err := runCmd(t, "", "sudo", "add", "--config", cfgPath, "--", id)
		if err == nil || !strings.Contains(err.Error(), "invalid user id") {
			t.Errorf("sudo add %s: err = %v, want invalid user id", id, err)
		}
	}
}
