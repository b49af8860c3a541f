// Package domain contains the core business entities of the content
// generation service: generation tasks, generated articles and content rules.
// It is independent of any storage, transport or LLM provider.
package domain
