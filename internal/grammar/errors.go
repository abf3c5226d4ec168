package grammar

import (
	"errors"
	"fmt"
)

// #region sentinels

var (
	ErrRuleNotFound       = errors.New("rule not found")
	ErrPreconditionFailed = errors.New("rule precondition failed")
	ErrMaxDepthExceeded   = errors.New("max expansion depth exceeded")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrInvalidWeight      = errors.New("alternative weight must be >= 1")
	ErrTemplateParse      = errors.New("template parse error")
)

// #endregion

// #region typed

// RuleNotFoundError names the rule that was looked up.
type RuleNotFoundError struct {
	Name string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("rule not found: %q", e.Name)
}

// Is matches ErrRuleNotFound.
func (e *RuleNotFoundError) Is(target error) bool {
	return target == ErrRuleNotFound
}

// TemplateParseError reports a malformed template at load time.
type TemplateParseError struct {
	Template string
	Offset   int
	Reason   string
}

func (e *TemplateParseError) Error() string {
	return fmt.Sprintf("template parse error at offset %d in %q: %s", e.Offset, e.Template, e.Reason)
}

// Is matches ErrTemplateParse.
func (e *TemplateParseError) Is(target error) bool {
	return target == ErrTemplateParse
}

// #endregion
