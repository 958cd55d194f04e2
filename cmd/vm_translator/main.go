package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hackforge/n2t/pkg/asm"
	"github.com/hackforge/n2t/pkg/vm"
	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file(s) to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Forces (or suppresses, with '=false') bootstrap code in the output").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return 2
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return 2
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phases (that will create a monolithic compiled output).
	program := vm.Program{}

	// Each input may be a single '.vm' file or a directory: in the latter case
	// every '.vm' file found within (recursively) is collected as its own TU,
	// matching the Jack compiler's directory-walking convention.
	TUs, fromDir := []string{}, false
	for _, input := range args {
		info, err := os.Stat(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to stat input path: %s\n", err)
			return 2
		}

		if !info.IsDir() {
			TUs = append(TUs, input)
			continue
		}

		fromDir = true
		filepath.Walk(input, func(walked string, walkedInfo fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if walkedInfo.IsDir() || filepath.Ext(walked) != ".vm" {
				return nil
			}
			TUs = append(TUs, walked)
			return nil
		})
	}

	// For every file provided by the user we do the following things
	for _, input := range TUs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return 2
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it.
		module, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return 1
		}

		name := strings.TrimSuffix(path.Base(input), path.Ext(input))
		program[name] = module
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program)
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	asmProgram, err := lowerer.Lowerer()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return 1
	}

	// Bootstrap code (SP=256; call Sys.init 0) is emitted by default whenever an input is a
	// directory or the program is made up of more than one module; a single .vm file given
	// directly is assumed to be runnable from its own first instruction.
	// '--bootstrap'/'--bootstrap=false' overrides this default either way.
	includeBootstrap := fromDir || len(program) > 1
	if raw, provided := options["bootstrap"]; provided {
		includeBootstrap = raw != "false"
	}

	if includeBootstrap {
		bootstrap, err := lowerer.Bootstrap()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
			return 1
		}
		asmProgram = append(bootstrap, asmProgram...)
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return 1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
