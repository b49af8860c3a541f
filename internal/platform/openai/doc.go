// Package openai implements generation.Generator for OpenAI-compatible chat
// completion endpoints using github.com/openai/openai-go. It is selected with
// llm.provider=openai and honours a custom base URL, so self-hosted or
// third-party compatible gateways work as well.
package openai
