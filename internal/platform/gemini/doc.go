// Package gemini implements generation.Generator on top of Google's Gemini
// API (google.golang.org/genai).
//
// GeminiGenerator issues single-shot and streamed generateContent calls,
// retrying transient failures with exponential backoff and jitter, and maps
// safety blocks and empty candidates to permanent generation errors.
//
// Provider caches one GeminiGenerator per API key. The key is resolved at
// call time in priority order: an explicit key, the stored "gemini_api_key"
// setting, then the configured key. Changing the key through the settings
// API calls Reset so the next batch builds a fresh client.
package gemini
