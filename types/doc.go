// Package types provides core types shared across agentverse.
// This package has ZERO dependencies on other agentverse packages to avoid
// circular imports. All other packages should import types from here.
package types
