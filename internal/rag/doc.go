// Package rag implements the iterative question-answering loop over the
// road-traffic graph.
//
// A Controller plans the aspects a question touches, generates one Cypher
// operation per aspect through the language model, runs it with a
// QueryExecutor, formats the result and accumulates it. Follow-up aspects
// are enqueued from what earlier aspects found. Once the queue drains the
// accumulated context is handed to the AnswerGenerator exactly once.
//
// Aspects within a turn run strictly in sequence because every follow-up
// prompt embeds the context gathered so far.
package rag
