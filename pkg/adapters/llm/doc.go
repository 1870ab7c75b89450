// Package llm builds completion providers from configuration.
//
// The factory creates LLM clients based on provider configuration.
// Supported providers:
//   - Anthropic Claude (Messages API)
//   - OpenAI and OpenAI-compatible endpoints (chat completions)
//
// LimitedClient wraps any provider with a concurrency cap, a
// requests-per-second limit, a per-request timeout and call metrics.
package llm
