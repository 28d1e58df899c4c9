package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/cache"
	"github.com/deepsearch-io/deepsearch/internal/search/encoder"
	"github.com/deepsearch-io/deepsearch/internal/search/hybrid"
	"github.com/deepsearch-io/deepsearch/internal/search/lexical"
	"github.com/deepsearch-io/deepsearch/internal/search/monitor"
	"github.com/deepsearch-io/deepsearch/internal/search/pool"
	"github.com/deepsearch-io/deepsearch/internal/search/tokenizer"
	"github.com/deepsearch-io/deepsearch/internal/search/vector"
)

var sampleTexts = map[string]string{
	"short": "Füze güvenlik testi sonuçları başarıyla tamamlandı",
	"medium": `Radar sistem analizi kapsamında menzil ölçümleri, anten kazancı ve
        gürültü tabanı ayrıntılı olarak incelendi. Elde edilen veriler önceki
        donanım revizyonuyla karşılaştırıldı ve performans artışı doğrulandı.
        Saha denemeleri üç farklı iklim koşulunda tekrarlandı.`,
	"long": strings.Repeat(`Balistik savunma mimarisi; erken uyarı, takip ve önleme
        katmanlarından oluşur. Her katman kendi sensör ağını besler ve komuta
        zincirine gerçek zamanlı veri aktarır. Önleyici füze bataryaları hedef
        tahsis algoritmasıyla yönetilir ve görev sonrası raporlar arşive işlenir. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				terms := tokenizer.Tokenize(text)
				_ = terms
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			terms := tokenizer.Tokenize(text)
			_ = terms
		}
	})
}

func buildCorpus(n int) *pool.Snapshot {
	enc := encoder.NewStatic(64, nil)
	ix := lexical.New()
	flat := vector.NewFlat(64)
	chunks := make(map[string]*search.Chunk, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%d", i)
		text := fmt.Sprintf("%s belge %d numaralı rapor", sampleTexts["medium"], i)
		embedding, _ := enc.Encode(context.Background(), text)
		ix.AddChunk(search.Chunk{
			ID:           id,
			DocumentPath: fmt.Sprintf("docs/rapor_%d.pdf", i),
			Text:         text,
			Embedding:    embedding,
		})
	}
	for i := 0; i < ix.Len(); i++ {
		chunk := ix.Chunk(i)
		chunks[chunk.ID] = chunk
		flat.Add([]string{chunk.ID}, [][]float32{chunk.Embedding})
	}
	return &pool.Snapshot{Lexical: ix, Vector: flat, Chunks: chunks, LoadedAt: time.Now()}
}

func BenchmarkLexicalScore(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		snap := buildCorpus(size)
		terms := tokenizer.Tokenize("radar sistem analizi")
		b.Run(fmt.Sprintf("chunks_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				hits := snap.Lexical.Score(terms, 50)
				_ = hits
			}
		})
	}
}

func BenchmarkVectorSearch(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		snap := buildCorpus(size)
		enc := encoder.NewStatic(64, nil)
		query, _ := enc.Encode(context.Background(), "radar sistem analizi")
		b.Run(fmt.Sprintf("vectors_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				neighbors, _ := snap.Vector.Search(context.Background(), query, 50)
				_ = neighbors
			}
		})
	}
}

func BenchmarkHybridSearch(b *testing.B) {
	snap := buildCorpus(1000)
	p := pool.New(func(ctx context.Context) (*pool.Snapshot, error) {
		return snap, nil
	}, time.Hour, nil)
	engine := hybrid.New(p, encoder.NewStatic(64, nil),
		cache.NewMemory(1000, time.Hour, nil), monitor.New(10, nil), hybrid.Options{})

	b.Run("cold_cache", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			results, err := engine.Search(context.Background(), fmt.Sprintf("radar analizi %d", i), 10, nil)
			if err != nil {
				b.Fatal(err)
			}
			_ = results
		}
	})
	b.Run("warm_cache", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			results, err := engine.Search(context.Background(), "radar sistem analizi", 10, nil)
			if err != nil {
				b.Fatal(err)
			}
			_ = results
		}
	})
}
