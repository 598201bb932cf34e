// Package render draws scheduled graphs as text timelines.
//
// Each execution block becomes a grid: one column per distinct start time,
// one lane per qubit. Nested block graphs follow their parent, indented.
//
//	ghz4 [dt]
//	block 0  0     50      750         950      1250
//	  q0     h     cx@0,1  delay[500]           barrier@0,1,2,3
//	  q1     ...
//
// Colors come from lipgloss and degrade to plain text when the output is
// not a terminal; WithColor(false) forces plain text.
package render
