package multigrid

import (
	"sort"

	"github.com/notargets/gomultigrid/utils"
)

// ReverseCuthillMcKee returns a bandwidth reducing symmetric permutation of A, with
// perm[new] = old. Each connected component starts from a pseudo peripheral vertex.
func ReverseCuthillMcKee(A utils.CSR) (perm utils.Index) {
	var (
		adj     = A.Graph()
		n       = len(adj)
		visited = make([]bool, n)
	)
	perm = make(utils.Index, 0, n)
	degree := func(i int) int { return len(adj[i]) }
	for {
		start := -1
		for i := 0; i < n; i++ {
			if !visited[i] && (start < 0 || degree(i) < degree(start)) {
				start = i
			}
		}
		if start < 0 {
			break
		}
		start = peripheral(adj, start)
		// Breadth first, neighbours by increasing degree
		head := len(perm)
		perm = append(perm, start)
		visited[start] = true
		for head < len(perm) {
			v := perm[head]
			head++
			var next []int
			for _, w := range adj[v] {
				if !visited[w] {
					visited[w] = true
					next = append(next, w)
				}
			}
			sort.SliceStable(next, func(a, b int) bool { return degree(next[a]) < degree(next[b]) })
			perm = append(perm, next...)
		}
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		perm[i], perm[j] = perm[j], perm[i]
	}
	return
}

// peripheral walks to a vertex of (locally) maximal eccentricity within start's component.
func peripheral(adj [][]int, start int) int {
	var (
		ecc  = -1
		dist = make(map[int]int)
	)
	for {
		for k := range dist {
			delete(dist, k)
		}
		dist[start] = 0
		queue := []int{start}
		far := start
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range adj[v] {
				if _, ok := dist[w]; !ok {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
					if dist[w] > dist[far] || (dist[w] == dist[far] && len(adj[w]) < len(adj[far])) {
						far = w
					}
				}
			}
		}
		if dist[far] <= ecc {
			return start
		}
		ecc = dist[far]
		start = far
	}
}

func orderingOf(A utils.CSR, o Ordering) utils.Index {
	if o == RCMOrdering {
		return ReverseCuthillMcKee(A)
	}
	n, _ := A.Dims()
	return utils.NewRange(0, n-1)
}
