// Package pollindex embeds the poll indexing pipeline in a Go service:
// summaries via a text generation model, embeddings, and a KNN vector
// index in Valkey or Redis.
//
//	idx, err := pollindex.New(ctx,
//	    pollindex.WithValkey("localhost:6379", ""),
//	    pollindex.WithOllama("http://localhost:11434", "llama3.1", "nomic-embed-text"),
//	    pollindex.WithInstructions("search_document: ", "search_query: "),
//	    pollindex.WithVectorSize(768),
//	)
//	defer idx.Close()
//
//	_ = idx.IndexPoll(ctx, poll.ID, poll.Description)
//	hits, _ := idx.SearchPolls(ctx, "four day work week")
//	for _, h := range pollindex.FilterByThreshold(hits, 0.5) {
//	    fmt.Println(h.PollID, h.Score)
//	}
//
// The relational poll store stays the source of truth. The index only
// holds (poll id, vector, optional summary) points and can be rebuilt
// from it at any time.
package pollindex
