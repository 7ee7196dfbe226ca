package dbkit

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the error kinds reported by the toolkit.
//
// Each typed error below matches its sentinel with errors.Is:
//
//	if errors.Is(err, dbkit.ErrInvalidArgument) { ... }
var (
	// ErrInvalidArgument is returned when a builder receives semantically
	// invalid input, such as a vector dimension that is not positive.
	ErrInvalidArgument = errors.New("dbkit: invalid argument")

	// ErrUnsupportedNode is returned when the expression transpiler meets a
	// parse-tree node, function or operator it has no handler for.
	ErrUnsupportedNode = errors.New("dbkit: unsupported node")

	// ErrDriverNotFound is returned when a dialect adapter cannot load the
	// native database/sql driver it needs.
	ErrDriverNotFound = errors.New("dbkit: driver not found")

	// ErrCatalog is returned when the server fails a catalog query.
	ErrCatalog = errors.New("dbkit: catalog error")

	// ErrConfiguration matches configuration problems collected by the
	// config validator.
	ErrConfiguration = errors.New("dbkit: configuration error")
)

// InvalidArgumentError reports a builder-time programming mistake.
type InvalidArgumentError struct {
	Op     string // Builder operation, e.g. "field.Vector".
	Arg    string // Offending argument or column.
	Reason string
}

// Error returns the error string.
func (e *InvalidArgumentError) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("dbkit: %s: invalid argument %q: %s", e.Op, e.Arg, e.Reason)
	}
	return fmt.Sprintf("dbkit: %s: %s", e.Op, e.Reason)
}

// Is reports whether the target error is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(err error) bool {
	return err == ErrInvalidArgument
}

// NewInvalidArgumentError returns a new InvalidArgumentError.
func NewInvalidArgumentError(op, arg, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Op: op, Arg: arg, Reason: reason}
}

// InvalidArgumentf returns an InvalidArgumentError with a formatted reason.
func InvalidArgumentf(op, arg, format string, a ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Op: op, Arg: arg, Reason: fmt.Sprintf(format, a...)}
}

// IsInvalidArgument returns true if the error is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidArgumentError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidArgument)
}

// UnsupportedNodeError is returned by the expression transpiler when it
// meets a node kind, function or operator without a registered mapping.
type UnsupportedNodeError struct {
	Kind string // "node", "function" or "operator".
	Name string
	Hint string // What to add to make the input supported.
}

// Error returns the error string.
func (e *UnsupportedNodeError) Error() string {
	msg := fmt.Sprintf("dbkit: unsupported %s %q", e.Kind, e.Name)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Is reports whether the target error is ErrUnsupportedNode.
func (e *UnsupportedNodeError) Is(err error) bool {
	return err == ErrUnsupportedNode
}

// NewUnsupportedNodeError returns a new UnsupportedNodeError.
func NewUnsupportedNodeError(kind, name, hint string) *UnsupportedNodeError {
	return &UnsupportedNodeError{Kind: kind, Name: name, Hint: hint}
}

// IsUnsupportedNode returns true if the error is an UnsupportedNodeError.
func IsUnsupportedNode(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedNodeError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedNode)
}

// DriverNotFoundError is returned when the database/sql driver of a dialect
// is not registered in the binary.
type DriverNotFoundError struct {
	Dialect string
	Driver  string
	Install string // Instructions for making the driver available.
}

// Error returns the error string.
func (e *DriverNotFoundError) Error() string {
	return fmt.Sprintf("dbkit: %s: driver %q is not registered; %s", e.Dialect, e.Driver, e.Install)
}

// Is reports whether the target error is ErrDriverNotFound.
func (e *DriverNotFoundError) Is(err error) bool {
	return err == ErrDriverNotFound
}

// NewDriverNotFoundError returns a new DriverNotFoundError.
func NewDriverNotFoundError(dialect, driver, install string) *DriverNotFoundError {
	return &DriverNotFoundError{Dialect: dialect, Driver: driver, Install: install}
}

// IsDriverNotFound returns true if the error is a DriverNotFoundError.
func IsDriverNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *DriverNotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrDriverNotFound)
}

// CatalogError wraps an error returned by the server while querying the
// system catalog. It is always returned after the connection was released.
type CatalogError struct {
	Dialect  string
	Step     string // Introspection step, e.g. "columns".
	SQLState string // Optional SQLSTATE reported by the server.
	Err      error
}

// Error returns the error string.
func (e *CatalogError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "dbkit: %s catalog", e.Dialect)
	if e.Step != "" {
		fmt.Fprintf(&sb, " (%s)", e.Step)
	}
	if e.SQLState != "" {
		fmt.Fprintf(&sb, " [%s]", e.SQLState)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error is ErrCatalog.
func (e *CatalogError) Is(err error) bool {
	return err == ErrCatalog
}

// NewCatalogError returns a new CatalogError.
func NewCatalogError(dialect, step string, err error) *CatalogError {
	return &CatalogError{Dialect: dialect, Step: step, Err: err}
}

// IsCatalogError returns true if the error is a CatalogError.
func IsCatalogError(err error) bool {
	if err == nil {
		return false
	}
	var e *CatalogError
	return errors.As(err, &e) || errors.Is(err, ErrCatalog)
}

// ConfigurationError describes one problem found in a configuration object.
// Configuration problems are collected and returned, never raised one by one.
type ConfigurationError struct {
	Path    string // Dotted path of the offending key, e.g. "pool.max".
	Message string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return "dbkit: config: " + e.Message
	}
	return fmt.Sprintf("dbkit: config: %s: %s", e.Path, e.Message)
}

// Is reports whether the target error is ErrConfiguration.
func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

// NewConfigurationError returns a new ConfigurationError.
func NewConfigurationError(path, format string, a ...any) *ConfigurationError {
	return &ConfigurationError{Path: path, Message: fmt.Sprintf(format, a...)}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e) || errors.Is(err, ErrConfiguration)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("dbkit: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "dbkit: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("dbkit: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors so errors.Is and errors.As see them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
