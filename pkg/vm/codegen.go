package vm

import "fmt"

// ----------------------------------------------------------------------------
// Renderer

// Renderer turns a 'vm.Program' back into the textual VM instruction format it was
// parsed from. Unlike the parser side, rendering needs no per-module state beyond the
// program itself, so operations are rendered by a free function rather than a method: the
// Renderer is just a thin driver that walks the program and dispatches by type.
type Renderer struct {
	program Program
}

// NewRenderer wraps a Program ready to be rendered. 'p' may be empty but not nil.
func NewRenderer(p Program) Renderer {
	return Renderer{program: p}
}

// Render produces, for every module in the program, the ordered list of text lines its
// operations translate to.
func (r Renderer) Render() (map[string][]string, error) {
	out := make(map[string][]string, len(r.program))

	for name, module := range r.program {
		lines := make([]string, 0, len(module))
		for _, op := range module {
			line, err := renderOperation(op)
			if err != nil {
				return nil, fmt.Errorf("module '%s': %w", name, err)
			}
			lines = append(lines, line)
		}
		out[name] = lines
	}

	return out, nil
}

// Segment offsets below are hardware constraints of the underlying Hack platform: the
// pointer segment only ever addresses THIS/THAT (0/1), and temp is backed by a fixed
// eight-word block (R5-R12).
const (
	maxPointerOffset uint16 = 1
	maxTempOffset    uint16 = 7
)

func renderOperation(op Operation) (string, error) {
	switch o := op.(type) {
	case MemoryOp:
		return renderMemoryOp(o)
	case ArithmeticOp:
		return string(o.Operation), nil
	case LabelDecl:
		if o.Name == "" {
			return "", fmt.Errorf("unable to produce empty label declaration")
		}
		return fmt.Sprintf("label %s", o.Name), nil
	case GotoOp:
		if o.Label == "" {
			return "", fmt.Errorf("unable to produce empty jump label")
		}
		return fmt.Sprintf("%s %s", o.Jump, o.Label), nil
	case FuncDecl:
		if o.Name == "" {
			return "", fmt.Errorf("unable to produce empty function declaration")
		}
		return fmt.Sprintf("function %s %d", o.Name, o.NLocal), nil
	case ReturnOp:
		return "return", nil
	case FuncCallOp:
		if o.Name == "" {
			return "", fmt.Errorf("unable to produce empty function call")
		}
		return fmt.Sprintf("call %s %d", o.Name, o.NArgs), nil
	default:
		return "", fmt.Errorf("unrecognized operation type %T", op)
	}
}

func renderMemoryOp(op MemoryOp) (string, error) {
	if op.Segment == Pointer && op.Offset > maxPointerOffset {
		return "", fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > maxTempOffset {
		return "", fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
	}
	return fmt.Sprintf("%s %s %d", op.Operation, op.Segment, op.Offset), nil
}
