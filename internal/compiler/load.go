package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// Load error codes - shared with the CLI envelope.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeCompile     = "E007" // Catalog compilation failed
)

// LoadResult contains a compiled catalog and where it came from.
type LoadResult struct {
	Catalog   *ir.Catalog
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during catalog loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load compiles a catalog from a CUE file or a directory of CUE files.
func Load(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog: %v", err)}
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadDir loads every CUE file of dir as one instance and compiles it.
func LoadDir(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	return compileLoaded(value, len(cueFiles))
}

// LoadFile compiles a single CUE file.
func LoadFile(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	value := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, convertCompileError(formatCUEError(err), ErrCodeBuildFailed)
	}
	return compileLoaded(value, 1)
}

func compileLoaded(value cue.Value, files int) (*LoadResult, error) {
	cat, err := CompileCatalog(value)
	if err != nil {
		return nil, convertCompileError(err, ErrCodeCompile)
	}
	return &LoadResult{Catalog: cat, FileCount: files}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, code string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: code, Message: err.Error()}
}
