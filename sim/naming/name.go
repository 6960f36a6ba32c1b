package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidName is wrapped by all the errors returned by Validate.
var ErrInvalidName = errors.New("invalid name")

// Validate checks a hierarchical component name. A name is a series of
// elements separated by dots, for example "Board.Ring.Writer". Each element
// starts with a capital letter, contains no underscore, quote or dash, and
// may carry integer indices in square brackets, as in "Arbiter.Port[1]".
func Validate(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	for _, elem := range strings.Split(name, ".") {
		if err := validateElement(elem); err != nil {
			return fmt.Errorf("%w: %q: %s", ErrInvalidName, name, err.Error())
		}
	}

	return nil
}

// MustBeValid panics if the name is not valid.
func MustBeValid(name string) {
	if err := Validate(name); err != nil {
		panic(err.Error())
	}
}

func validateElement(elem string) error {
	base, indices, found := strings.Cut(elem, "[")
	if base == "" {
		return errors.New("element must not be empty")
	}

	if strings.ContainsAny(base, "_\"'-]") {
		return errors.New("element must not contain _ \" ' - or ]")
	}

	if base[0] < 'A' || base[0] > 'Z' {
		return errors.New("element must start with a capital letter")
	}

	if !found {
		return nil
	}

	for _, idx := range strings.Split(indices, "[") {
		if !strings.HasSuffix(idx, "]") {
			return errors.New("brackets must match")
		}

		if _, err := strconv.Atoi(strings.TrimSuffix(idx, "]")); err != nil {
			return errors.New("index must be an integer")
		}
	}

	return nil
}

// BuildName joins a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex joins a parent name and an indexed element name.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
