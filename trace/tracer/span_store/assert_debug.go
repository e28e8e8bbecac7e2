//go:build tracingdebug

package span_store

const debugAssertions = true
