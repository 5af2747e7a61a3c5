// Package hookengine implements the observable-tool-invocation hook system:
// a pattern matcher, a registry of script and callback hooks, runners for
// each hook type, a result aggregator, an error classifier, and the
// singleton Manager that ties them together around every tool call.
package hookengine
