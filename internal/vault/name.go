package vault

import (
	"fmt"
	"strings"
)

// checkName rejects stored names that would escape the flat vault namespace.
func checkName(storedName string) error {
	if storedName == "" || storedName == "." || storedName == ".." || strings.ContainsAny(storedName, `/\`) {
		return fmt.Errorf("invalid stored name %q", storedName)
	}
	return nil
}
