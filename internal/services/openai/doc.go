// Package openai adapts the OpenAI speech and chat APIs to the three
// provider-backed pipeline stages: Whisper transcription with segment
// timestamps, chat-based segment translation, and text-to-speech synthesis.
// API failures are classified by HTTP status so rate limits and outages retry
// while bad credentials and rejected requests fail fast.
package openai
