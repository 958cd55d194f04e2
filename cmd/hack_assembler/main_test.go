package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestHackAssembler(t *testing.T) {
	test := func(source string, expected string) {
		dir := t.TempDir()
		input := filepath.Join(dir, "Test.asm")
		output := filepath.Join(dir, "Test.hack")

		if err := os.WriteFile(input, []byte(source), 0644); err != nil {
			t.Fatalf("Unable to write input fixture: %v", err)
		}

		status := Handler([]string{input, output}, nil)
		if status != 0 {
			t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
		}

		compiled, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("Error reading output file %s: %v", output, err)
		}

		if string(compiled) != expected {
			t.Fatalf("Compiled output does not match expectation\n got: %q\nwant: %q", compiled, expected)
		}
	}

	// Computes R0 = 2 + 3, the canonical first program every Nand2Tetris student assembles.
	t.Run("Add", func(t *testing.T) {
		source := "@2\nD=A\n@3\nD=D+A\n@0\nM=D\n"
		expected := fmt.Sprintf("%016b\n%016b\n%016b\n%016b\n%016b\n%016b\n",
			2, 0b1110110000010000, 3, 0b1110000010010000, 0, 0b1110001100001000)
		test(source, expected)
	})

	// Exercises label resolution: a symbolic jump target alongside a user-defined variable.
	// '(LOOP)' binds to the address of the instruction right after it (2, the label decl
	// itself emits nothing); 'i' is the first unknown symbol, allocated starting at 16.
	t.Run("LoopWithVariable", func(t *testing.T) {
		source := "@i\nM=0\n(LOOP)\n@i\nM=M+1\n@LOOP\n0;JMP\n"
		expected := fmt.Sprintf("%016b\n%016b\n%016b\n%016b\n%016b\n%016b\n",
			16, 0b1110101010001000, 16, 0b1111110111001000, 2, 0b1110101010000111)
		test(source, expected)
	})
}
