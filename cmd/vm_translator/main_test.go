package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVMTranslator(t *testing.T) {
	// A single .vm file given directly never gets the 'Sys.init' bootstrap prepended by default,
	// which keeps the emitted assembly fully deterministic and easy to assert against.
	t.Run("SimpleAdd", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "SimpleAdd.vm")
		output := filepath.Join(dir, "SimpleAdd.asm")

		source := "push constant 7\npush constant 8\nadd\n"
		if err := os.WriteFile(input, []byte(source), 0644); err != nil {
			t.Fatalf("Unable to write input fixture: %v", err)
		}

		status := Handler([]string{input}, map[string]string{"output": output})
		if status != 0 {
			t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
		}

		compiled, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("Error reading output file %s: %v", output, err)
		}

		expected := "" +
			"@7\n" + "D=A\n" + "@SP\n" + "M=M+1\n" + "A=M-1\n" + "M=D\n" +
			"@8\n" + "D=A\n" + "@SP\n" + "M=M+1\n" + "A=M-1\n" + "M=D\n" +
			"@SP\n" + "AM=M-1\n" + "D=M\n" + "A=A-1\n" + "M=D+M\n"

		if string(compiled) != expected {
			t.Fatalf("Compiled output does not match expectation\n got: %q\nwant: %q", compiled, expected)
		}
	})

	// Forcing '--bootstrap' on a lone module still prepends 'SP=256; call Sys.init 0'.
	t.Run("ForcedBootstrap", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "Halt.vm")
		output := filepath.Join(dir, "Halt.asm")

		if err := os.WriteFile(input, []byte("label LOOP\ngoto LOOP\n"), 0644); err != nil {
			t.Fatalf("Unable to write input fixture: %v", err)
		}

		status := Handler([]string{input}, map[string]string{"output": output, "bootstrap": "true"})
		if status != 0 {
			t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
		}

		compiled, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("Error reading output file %s: %v", output, err)
		}

		if compiled[0] != '@' {
			t.Fatalf("Expected bootstrap code ('@256' as SP init) to lead the output, got: %q", compiled)
		}
	})
}
