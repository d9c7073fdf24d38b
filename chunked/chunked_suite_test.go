package chunked_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestChunked(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "chunked suite")
}
