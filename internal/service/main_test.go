package service

import (
	"os"
	"testing"

	"github.com/Natural-Intelligence/be-revisable/internal/tester"
)

func TestMain(m *testing.M) {
	tester.Setup()
	code := m.Run()

	os.Exit(code)
}
