// Package graph back-fills observed HTTP statuses across the stored link
// graph after a crawl.
//
// A page that redirects or errors taints every internal link pointing at it;
// propagation walks the graph until each node carries the worst status
// reachable from it, then writes the results back onto the link rows. Worst
// means numerically highest: a 500 beats a 404 beats a 301 beats a 200.
package graph
