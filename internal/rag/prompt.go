package rag

import "strings"

// promptTemplate grounds the model in retrieved context only. %CONTEXT%
// and %QUESTION% are substituted by BuildPrompt.
const promptTemplate = `You are a helpful assistant providing information about company products.
Answer the following question based ONLY on the provided context.
If the answer is not in the context, state that you don't have enough information.
Keep your answer concise and to the point.

Context:
%CONTEXT%

Question: %QUESTION%

Answer:`

// BuildPrompt assembles the generation prompt. The context block is the
// retrieved chunk texts joined by blank lines, in retrieval order.
func BuildPrompt(question string, results []RetrievalResult) string {
	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Content
	}

	prompt := strings.ReplaceAll(promptTemplate, "%CONTEXT%", strings.Join(contexts, "\n\n"))
	return strings.ReplaceAll(prompt, "%QUESTION%", question)
}
