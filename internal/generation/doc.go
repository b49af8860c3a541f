// Package generation drives an AI/LLM text model to produce Markdown
// articles. It defines the Generator interface that provider packages
// (platform/gemini, platform/openai) implement, the prompt template helpers,
// a shared retry policy for provider calls, and BatchGenerator, which runs
// the sequential per-article loop with progress and streaming callbacks.
package generation
