package gradle

import "fmt"

// AdvisoryKind names why a file was left for the operator to fix.
type AdvisoryKind string

const (
	AdvisoryApplyMissing            AdvisoryKind = "apply-missing"
	AdvisoryDuplicateDeclaration    AdvisoryKind = "duplicate-declaration"
	AdvisoryUnrecognizedDeclaration AdvisoryKind = "unrecognized-declaration"
)

// Advisory is an operator-facing warning emitted in place of an edit the
// injector considers unsafe.
type Advisory struct {
	Path    string
	Kind    AdvisoryKind
	Message string
	// Snippet is the exact text the operator should add, if any.
	Snippet string
	// Err is set when the advisory corresponds to a sentinel error.
	Err error
}

func (a Advisory) String() string {
	return a.Message
}

func duplicateAdvisory(path, id string, count int, err error) Advisory {
	msg := fmt.Sprintf("%s declares %s %d times; only the first declaration is kept at the expected version, remove the others", path, id, count)
	if err != nil {
		msg = fmt.Sprintf("%s declares %s %d times; file left unchanged, keep a single declaration and run again", path, id, count)
	}
	return Advisory{
		Path:    path,
		Kind:    AdvisoryDuplicateDeclaration,
		Message: msg,
		Err:     err,
	}
}

func unrecognizedAdvisory(path string, d Dialect, id, version string) Advisory {
	decl := d.Declaration(id, version)
	return Advisory{
		Path:    path,
		Kind:    AdvisoryUnrecognizedDeclaration,
		Message: fmt.Sprintf("%s mentions %s but no declaration could be recognized; make sure its plugins block contains:\n%s", path, id, decl),
		Snippet: decl,
	}
}
