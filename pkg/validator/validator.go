// package validator provides the necessary utilities
// to validate configuration before a collection run starts
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	repositoryRegex = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)
)

// Validator: type which contains a map of validation errors (error name : string -> error_description : string)
type Validator struct {
	Errors map[string]string
}

// New: return an instance of a validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid: returns true if there are no errors, otherwise false
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError: add a new error to the validator
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// CheckConstraint: Receives a constraint that evaluates to a boolean expression to validate
// false -> add error
// true -> skip
func (v *Validator) CheckConstraint(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Err: returns nil when valid, otherwise a single error listing every
// validation failure ordered by key
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}

	keys := make([]string, 0, len(v.Errors))
	for key := range v.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, key := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", key, v.Errors[key]))
	}

	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ValidateRepository checks a normalized "owner/name" repository identifier
func ValidateRepository(validator *Validator, key, repo string) {
	validator.CheckConstraint(repo != "", key, "repository must be provided")
	validator.CheckConstraint(MatchesRepository(repo), key, fmt.Sprintf("%q is not a valid owner/name repository", repo))
}

func MatchesRepository(repo string) bool {
	return repositoryRegex.MatchString(repo)
}
