package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PageHandler serves the browser upload form.
type PageHandler struct{}

// NewPageHandler creates a new page handler.
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Index serves the upload page. The page posts to /api/v1/scans and renders
// the final text, the consensus path and, when a reference was entered, the score.
func (h *PageHandler) Index(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Moji Scan</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Hiragino Sans", sans-serif; max-width: 720px; margin: 0 auto; padding: 24px; color: #222; }
        h1 { margin-bottom: 4px; }
        .card { border: 1px solid #ddd; border-radius: 8px; padding: 16px; margin-top: 16px; }
        label { display: block; font-weight: 600; margin: 12px 0 4px; }
        textarea { width: 100%; box-sizing: border-box; font-size: 15px; }
        button { margin-top: 12px; padding: 8px 20px; font-size: 15px; cursor: pointer; }
        img { max-width: 100%; margin-top: 12px; border-radius: 4px; }
        .error { color: #b00020; }
        .warning { color: #8a5a00; }
        .meta { color: #666; font-size: 13px; }
        .hidden { display: none; }
        footer { text-align: center; color: #888; margin-top: 32px; font-size: 13px; }
    </style>
</head>
<body>
    <h1>📝 Moji Scan</h1>
    <p>手書き文字の画像をアップロードすると、AIがテキストに書き起こします。</p>

    <form id="scan-form" class="card">
        <label for="image">画像ファイルを選択してください</label>
        <input type="file" id="image" name="image" accept="image/png,image/jpeg" required>
        <img id="preview" class="hidden" alt="アップロードされた画像">

        <label for="reference">正解テキスト（任意）</label>
        <textarea id="reference" name="reference" rows="4" placeholder="入力すると書き起こし結果と比較します"></textarea>

        <button type="submit" id="submit">書き起こす</button>
        <span id="spinner" class="meta hidden">AIが手書き文字を解析中です...</span>
    </form>

    <div id="result" class="card hidden">
        <h2>書き起こし結果</h2>
        <label for="final-text">以下のテキストをコピーしてご利用ください:</label>
        <textarea id="final-text" rows="10" readonly></textarea>
        <p id="path" class="meta"></p>
        <p id="warnings" class="warning"></p>
        <div id="score" class="hidden">
            <h3>精度</h3>
            <p>編集距離: <span id="edit-distance"></span></p>
            <p>類似度: <span id="similarity"></span>%</p>
        </div>
    </div>

    <p id="error" class="error"></p>

    <footer>Powered by a hosted multimodal model</footer>

    <script>
        const form = document.getElementById('scan-form');
        const imageInput = document.getElementById('image');
        const preview = document.getElementById('preview');
        const pathLabels = { agreed: '2回の読み取りが一致しました', arbitrated: '読み取り結果を照合して決定しました', degraded: '照合に失敗したため、1回目の読み取り結果を表示しています' };

        imageInput.addEventListener('change', () => {
            const file = imageInput.files[0];
            if (!file) { preview.classList.add('hidden'); return; }
            preview.src = URL.createObjectURL(file);
            preview.classList.remove('hidden');
        });

        form.addEventListener('submit', async (e) => {
            e.preventDefault();
            document.getElementById('error').textContent = '';
            document.getElementById('result').classList.add('hidden');
            document.getElementById('spinner').classList.remove('hidden');
            document.getElementById('submit').disabled = true;

            try {
                const resp = await fetch('/api/v1/scans', { method: 'POST', body: new FormData(form) });
                const data = await resp.json();
                if (!resp.ok) { throw new Error(data.error || resp.statusText); }

                const outcome = data.outcome;
                document.getElementById('final-text').value = outcome.final_text;
                document.getElementById('path').textContent = pathLabels[outcome.path] || outcome.path;
                document.getElementById('warnings').textContent = (outcome.warnings || []).join(' ');

                const score = document.getElementById('score');
                if (data.score) {
                    document.getElementById('edit-distance').textContent = data.score.edit_distance;
                    document.getElementById('similarity').textContent = data.score.similarity_percent.toFixed(2);
                    score.classList.remove('hidden');
                } else {
                    score.classList.add('hidden');
                }
                document.getElementById('result').classList.remove('hidden');
            } catch (err) {
                document.getElementById('error').textContent = 'エラーが発生しました: ' + err.message;
            } finally {
                document.getElementById('spinner').classList.add('hidden');
                document.getElementById('submit').disabled = false;
            }
        });
    </script>
</body>
</html>`
