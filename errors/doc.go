// Package errors provides structured error types for the bridge.
//
// Every failure that crosses the bridge boundary is an *Error carrying the
// phase it occurred in (load, attach, resolve, invoke, reenter) and a kind
// matching the bridge's error taxonomy. Errors wrap their underlying cause,
// so errors.Is and errors.As from the standard library work as expected:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindAlreadyInitialized}) {
//	    // second init attempt
//	}
//
// Matching compares phase and kind only; detail text is diagnostic.
package errors
