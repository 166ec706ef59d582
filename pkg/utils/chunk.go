package utils

// Chunk разбивает срез на пакеты не длиннее size элементов.
// Последний пакет может быть короче. Порядок элементов сохраняется.
// При size <= 0 возвращается один пакет со всеми элементами.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// ChunkCount возвращает количество пакетов, которое даст Chunk для указанных параметров
func ChunkCount(total, size int) int {
	if total <= 0 {
		return 0
	}
	if size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}
