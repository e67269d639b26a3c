package toolscript

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/strombasis/mako-assistant/pkg/errors"
	"github.com/strombasis/mako-assistant/pkg/logging"
)

// ValidationReport is the immutable result of a successful static
// validation run.
type ValidationReport struct {
	SyntaxValid   bool     `json:"syntaxValid"`
	Deterministic bool     `json:"deterministic"`
	ForbiddenAPIs []string `json:"forbiddenApis"`
	Warnings      []string `json:"warnings"`
}

// determinismRule flags a construct that breaks the determinism contract.
type determinismRule struct {
	pattern *regexp.Regexp
	label   string
}

// moduleRule describes a Node module that is forbidden unless the gating
// constraint grants it. A nil gate means the module is always forbidden.
type moduleRule struct {
	module string
	gate   func(Constraints) bool
}

// globalRule flags a forbidden global call independent of constraints.
type globalRule struct {
	pattern *regexp.Regexp
	label   string
}

// The rule tables are data so each rule is unit-testable in isolation and
// new rules do not touch control flow. Regex matching is best effort: it
// can be bypassed by string-building obfuscation, which is acceptable for
// code that is only ever queued for manual review, never executed blindly.
var (
	determinismRules = []determinismRule{
		{regexp.MustCompile(`Math\.random\s*\(`), "Math.random()"},
		{regexp.MustCompile(`crypto\.randomUUID\s*\(`), "crypto.randomUUID()"},
		{regexp.MustCompile(`crypto\.randomBytes\s*\(`), "crypto.randomBytes()"},
		{regexp.MustCompile(`Date\.now\s*\(`), "Date.now()"},
		{regexp.MustCompile(`new\s+Date\s*\(\s*\)`), "new Date()"},
		{regexp.MustCompile(`setTimeout\s*\(`), "setTimeout()"},
		{regexp.MustCompile(`setInterval\s*\(`), "setInterval()"},
	}

	moduleRules = []moduleRule{
		{module: "child_process"},
		{module: "worker_threads"},
		{module: "cluster"},
		{module: "fs", gate: func(c Constraints) bool { return c.AllowFilesystem }},
		{module: "fs/promises", gate: func(c Constraints) bool { return c.AllowFilesystem }},
		{module: "http", gate: func(c Constraints) bool { return c.AllowNetwork }},
		{module: "https", gate: func(c Constraints) bool { return c.AllowNetwork }},
		{module: "net", gate: func(c Constraints) bool { return c.AllowNetwork }},
		{module: "dns", gate: func(c Constraints) bool { return c.AllowNetwork }},
	}

	globalRules = []globalRule{
		{regexp.MustCompile(`process\.exit\s*\(`), "process.exit"},
		{regexp.MustCompile(`process\.kill\s*\(`), "process.kill"},
	}
)

var requirePatterns = buildRequirePatterns()

func buildRequirePatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(moduleRules))
	for _, rule := range moduleRules {
		patterns[rule.module] = regexp.MustCompile(
			`require\s*\(\s*['"` + "`" + `]` + regexp.QuoteMeta(rule.module) + `['"` + "`" + `]\s*\)`)
	}
	return patterns
}

// Engine is the static safety gate for tool-script candidates. Validation
// is fail-fast: the first failing category raises a typed error, while all
// findings within a category are aggregated.
type Engine struct {
	parser *sitter.Parser
	mu     sync.Mutex
	log    *logging.Logger
}

// NewEngine creates a validation engine for JavaScript candidates.
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &Engine{parser: parser, log: logger}
}

// Validate runs the ordered check pipeline against a candidate script.
// On success it returns the validation report; any violation raises a
// typed 422-class error and no report.
func (e *Engine) Validate(ctx context.Context, code string, constraints Constraints, entrypoint string) (*ValidationReport, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.Script(errors.ErrCodeEmptyCode, "Skript-Code ist leer")
	}

	if err := e.checkSyntax(ctx, code); err != nil {
		e.log.Warn(logging.CategoryToolScript, "validation_rejected", "syntax check failed",
			map[string]any{"code": string(errors.GetCode(err))})
		return nil, err
	}

	if err := checkEntrypoint(code, entrypoint); err != nil {
		return nil, err
	}
	if err := checkAsyncDeclaration(code, entrypoint); err != nil {
		return nil, err
	}

	if constraints.Deterministic {
		if err := checkDeterminism(code); err != nil {
			return nil, err
		}
	}

	warnings, err := checkForbiddenAPIs(code, constraints)
	if err != nil {
		return nil, err
	}

	return &ValidationReport{
		SyntaxValid: true,
		// Reflects the requested policy, not a proof derived from the code.
		Deterministic: constraints.Deterministic,
		ForbiddenAPIs: []string{},
		Warnings:      warnings,
	}, nil
}

// checkSyntax parses the candidate as an isolated script without executing
// it. Tree-sitter always produces a tree; error and missing nodes mark the
// places where parsing failed.
func (e *Engine) checkSyntax(ctx context.Context, code string) error {
	e.mu.Lock()
	tree, err := e.parser.ParseCtx(ctx, nil, []byte(code))
	e.mu.Unlock()
	if err != nil {
		return errors.Script(errors.ErrCodeInvalidSyntax, "Skript konnte nicht geparst werden").
			WithContext("detail", err.Error())
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	detail := "Syntaxfehler im Skript"
	if node := findSyntaxError(root); node != nil {
		point := node.StartPoint()
		kind := "unexpected input"
		if node.IsMissing() {
			kind = fmt.Sprintf("missing %s", node.Type())
		}
		detail = fmt.Sprintf("%s at line %d, column %d", kind, point.Row+1, point.Column+1)
	}

	return errors.Script(errors.ErrCodeInvalidSyntax, "Skript enthält ungültige Syntax").
		WithContext("detail", detail)
}

func findSyntaxError(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := findSyntaxError(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// checkEntrypoint requires the script to export the entrypoint in one of
// the recognized CommonJS forms.
func checkEntrypoint(code, entrypoint string) error {
	name := regexp.QuoteMeta(entrypoint)
	exportPatterns := []*regexp.Regexp{
		regexp.MustCompile(`module\.exports\s*=\s*\{[^}]*\b` + name + `\b`),
		regexp.MustCompile(`exports\.` + name + `\s*=`),
		regexp.MustCompile(`module\.exports\s*=\s*` + name + `\b`),
	}

	for _, pattern := range exportPatterns {
		if pattern.MatchString(code) {
			return nil
		}
	}

	return errors.Script(errors.ErrCodeMissingEntrypoint,
		fmt.Sprintf("Skript exportiert keinen Entrypoint %q", entrypoint)).
		WithContext("entrypoint", entrypoint)
}

// checkAsyncDeclaration requires the entrypoint to be declared async, in
// any of the declaration forms the generator contract permits.
func checkAsyncDeclaration(code, entrypoint string) error {
	name := regexp.QuoteMeta(entrypoint)
	asyncPatterns := []*regexp.Regexp{
		regexp.MustCompile(`async\s+function\s+` + name + `\s*\(`),
		regexp.MustCompile(`(?:const|let|var)\s+` + name + `\s*=\s*async\b`),
		regexp.MustCompile(name + `\s*:\s*async\b`),
	}

	for _, pattern := range asyncPatterns {
		if pattern.MatchString(code) {
			return nil
		}
	}

	return errors.Script(errors.ErrCodeMissingAsyncRun,
		fmt.Sprintf("Entrypoint %q muss als async deklariert sein", entrypoint)).
		WithContext("entrypoint", entrypoint)
}

// checkDeterminism rejects every non-deterministic construct found, not
// just the first one.
func checkDeterminism(code string) error {
	var violations []string
	for _, rule := range determinismRules {
		if rule.pattern.MatchString(code) {
			violations = append(violations, rule.label)
		}
	}

	if len(violations) == 0 {
		return nil
	}

	return errors.Script(errors.ErrCodeNonDeterministicCode,
		"Skript verwendet nicht-deterministische Konstrukte").
		WithContext("violations", violations)
}

// checkForbiddenAPIs aggregates module and global violations into a single
// rejection. Granted gated modules produce warnings instead of errors.
func checkForbiddenAPIs(code string, constraints Constraints) ([]string, error) {
	var found []string
	warnings := []string{}
	seen := make(map[string]struct{})

	for _, rule := range moduleRules {
		if !requirePatterns[rule.module].MatchString(code) {
			continue
		}
		if rule.gate != nil && rule.gate(constraints) {
			warnings = append(warnings,
				fmt.Sprintf("Skript verwendet das freigegebene Modul %q", rule.module))
			continue
		}
		if _, dup := seen[rule.module]; !dup {
			seen[rule.module] = struct{}{}
			found = append(found, rule.module)
		}
	}

	for _, rule := range globalRules {
		if !rule.pattern.MatchString(code) {
			continue
		}
		if _, dup := seen[rule.label]; !dup {
			seen[rule.label] = struct{}{}
			found = append(found, rule.label)
		}
	}

	if len(found) > 0 {
		return nil, errors.Script(errors.ErrCodeForbiddenAPIs, "Skript verwendet verbotene APIs").
			WithContext("apis", found)
	}

	return warnings, nil
}
