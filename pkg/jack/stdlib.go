package jack

import (
	_ "embed"
	"encoding/json"
)

//go:embed stdlib.json
var content string

// StandardLibraryABI maps each Jack OS class name to its subroutine signatures
// (by name), so '--stdlib' mode can resolve calls to 'Math.multiply',
// 'Memory.alloc' and the rest of the conventional OS surface without requiring
// their '.jack' source to be present on the compiler's input path.
var StandardLibraryABI = map[string]map[string]Subroutine{}

func init() { json.Unmarshal([]byte(content), &StandardLibraryABI) }
