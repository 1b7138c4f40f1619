package packedrtree

import (
	"errors"
	"fmt"
)

const packageName = "packedrtree: "

func textErr(text string) error {
	return errors.New(packageName + text)
}

func fmtErr(format string, a ...interface{}) error {
	return fmt.Errorf(packageName+format, a...)
}

func wrapErr(text string, err error) error {
	return fmt.Errorf("%s%s: %w", packageName, text, err)
}
