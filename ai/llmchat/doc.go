// Package llmchat implements ai.Generator and ai.EntityExtractor on top of any
// langchaingo llms.Model.
//
// The provider packages (ai/openai, ai/ollama) construct the model client and
// hand it to NewGenerator and NewEntityExtractor, so both providers share one
// prompt, one retry policy and one JSON repair path. Tests pass a
// langchaingo fake model.
package llmchat
