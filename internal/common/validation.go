package common

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"interviewprep/internal/errors"
	"interviewprep/internal/types"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveJobRole accepts a role by its exact name or by its 1-based
// position in types.JobRoles.
func ResolveJobRole(input string) (types.JobRole, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidJobRole, "job role is required", nil)
	}

	if role := types.JobRole(input); types.ValidJobRole(role) {
		return role, nil
	}

	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(types.JobRoles) {
		return types.JobRoles[n-1], nil
	}

	return "", errors.NewValidationError(errors.ErrCodeInvalidJobRole,
		fmt.Sprintf("unknown job role %q, expected one of: %s", input, describeRoles()), nil)
}

func describeRoles() string {
	parts := make([]string, len(types.JobRoles))
	for i, role := range types.JobRoles {
		parts[i] = fmt.Sprintf("%d=%s", i+1, role)
	}
	return strings.Join(parts, ", ")
}
