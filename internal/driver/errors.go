package driver

import (
	"errors"

	"hgb/internal/config"
	"hgb/internal/diag"
)

// reportSetupError prints a failure that stopped an invocation before
// Finalize. Configuration problems are plain errors; everything else is a
// fatal error of the named activity.
func reportSetupError(env Env, activity string, err error) {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		env.Reporter.Log(diag.SevError, cfgErr.Error())
		return
	}
	var fault *EngineFault
	if errors.As(err, &fault) {
		env.Reporter.Fatal(activity, fault.Detail())
		return
	}
	env.Reporter.Fatal(activity, err.Error())
}
