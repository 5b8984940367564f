package discovery_test

import (
	"context"
	"testing"

	"github.com/gotestmon/testmon/internal/discovery"
)

func TestList_ErrorsOnUnknownPackage(t *testing.T) {
	_, err := discovery.List(context.Background(), "this/package/does/not/exist")
	if err == nil {
		t.Error("List() should error on an unresolvable package")
	}
}

func TestListAll_ErrorsOnUnknownPattern(t *testing.T) {
	_, err := discovery.ListAll(context.Background(), "this/package/does/not/exist/...")
	if err == nil {
		t.Error("ListAll() should error on an unresolvable pattern")
	}
}
