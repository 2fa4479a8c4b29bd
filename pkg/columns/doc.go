// Package columns implements the typed column values that make up a board
// record. Each value owns one upstream column: it validates assignments,
// produces the commit payload fragment for its column, and hydrates itself
// from the raw column data returned by the board API.
//
// Kinds and their encodings:
//
//	text       "text" key          -> "<text>"
//	long_text  "text" key          -> {"text": "<text>"}
//	number     "text" key          -> <int>
//	status     "text" key          -> {"label": "<label>"}
//	date       "text" key          -> "YYYY-MM-DD HH:MM:SS" (UTC) or ""
//	link       "value" key (JSON)  -> {"url": "<url>", "text": "<text>"}
//	relation   "linked_item_ids"   -> {"item_ids": [<id>, ...]}
package columns
