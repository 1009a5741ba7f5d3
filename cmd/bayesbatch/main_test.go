package main

import "testing"

func TestMainDelegatesToExecute(t *testing.T) {
	orig := executeCmd
	t.Cleanup(func() { executeCmd = orig })

	called := false
	executeCmd = func() { called = true }
	main()
	if !called {
		t.Fatal("expected main to call the root command")
	}
}
