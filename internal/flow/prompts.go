package flow

import (
	"fmt"
	"regexp"
	"strings"
)

// botName identifies the tutor persona in user-facing text.
const botName = "Mentor Matemático"

// surveyLink is the feedback form shared by /encuesta.
const surveyLink = "https://forms.gle/dtyB5o2FncCA7zMy7"

// exerciseTopics are the selectable topics for /prueba.
var exerciseTopics = []string{
	"Polinomios", "Funciones trigonométricas", "Funciones exponenciales",
	"Funciones logarítmicas", "Regla de la cadena", "Límites",
	"Funciones Hiperbólicas", "Regla del Producto", "Regla del cociente",
}

// notebookContext primes the model with the digital notebook's structure
// so /dudas answers stay anchored to the course material.
const notebookContext = `
Eres un tutor experto en Cálculo Diferencial y estás ayudando a un estudiante a completar su "Cuaderno Digital: Mentor matemático con IA".
Tu objetivo es responder sus dudas basándote en la estructura y contenido de este cuaderno.

**Descripción General del Cuaderno:**
El cuaderno busca que el estudiante comprenda y aplique el concepto de derivada a través de ejercicios y reflexión, usando una IA como herramienta. Está estructurado en tres bloques.

**Bloque 1: Concepto Matemático de Derivada**
- **Objetivo:** Comprender la derivada gráfica, numérica y algebraicamente.
- **Dudas Frecuentes:**
    - Sobre la pendiente en f(x)=x^2: La pendiente (inclinación) es negativa para x<0, cero en x=0, y positiva para x>0.
    - Sobre el cociente de diferencias: Es una aproximación a la pendiente de la recta tangente. A medida que h→0, se acerca a la derivada.
    - Sobre rectas secante y tangente: La secante corta en dos puntos, la tangente en uno. La tangente es el límite de la secante cuando los dos puntos se unen.
    - Sobre comparar el límite y el valor exacto en f(x)=√x: El valor exacto se calcula con la regla de la potencia. El valor del límite de la tabla es una aproximación numérica; pueden existir pequeñas diferencias.

**Bloque 2: Ejercicios de Derivación**
- **Objetivo:** Aplicar reglas básicas de derivación.
- **Dudas Frecuentes:**
    - Para f(x)=(x²+1)/x: Se puede simplificar a f(x) = x + x⁻¹ y usar la regla de la potencia, o usar la regla del cociente directamente.
    - Para f(x)=e^x ⋅ cos(x): Se usa la regla del producto (u'v + uv').
    - Error común: La derivada de un producto NO es el producto de las derivadas.

**Bloque 3: Aplicaciones de la Derivada**
- **Objetivo:** Usar la derivada para resolver problemas de optimización y análisis.
- **Dudas Frecuentes:**
    - Problema de la lata cilíndrica: Se busca minimizar el área superficial (material) para un volumen fijo. Se usan las fórmulas de área y volumen del cilindro.
    - Rol de la derivada en optimización: Ayuda a encontrar puntos críticos (donde f'(x)=0), que son candidatos a ser máximos o mínimos.
    - Intervalos de crecimiento/decrecimiento: Se encuentra f'(x), se iguala a cero para hallar puntos críticos. El signo de f'(x) en los intervalos resultantes determina si la función crece (f'>0) o decrece (f'<0).
    - Descripción de máximos y mínimos: Un máximo relativo ocurre si la función cambia de creciente a decreciente. Un mínimo, si cambia de decreciente a creciente.
`

// doubtPattern extracts the question and requested depth from a doubt
// message such as "¿Qué es la derivada? nivel Fácil".
var doubtPattern = regexp.MustCompile(`(?i)(.+)\s+nivel\s*(fácil|intermedio|avanzado)`)

// doubtDepth maps the user-facing level names to the explanation depth
// requested from the model.
var doubtDepth = map[string]string{
	"fácil":      "básico",
	"intermedio": "detallado",
	"avanzado":   "experto",
}

// parseDoubt splits a doubt message into the question and the mapped
// explanation depth. ok is false when the message doesn't follow the
// "<duda> nivel <fácil|intermedio|avanzado>" format.
func parseDoubt(text string) (doubt, level, depth string, ok bool) {
	m := doubtPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", "", false
	}
	doubt = strings.TrimSpace(m[1])
	level = m[2]
	depth = doubtDepth[strings.ToLower(level)]
	return doubt, level, depth, true
}

func notebookPrompt(question string) string {
	return fmt.Sprintf("%s\n\n---\n\nBasado en el contexto anterior del 'Cuaderno Digital', responde la siguiente duda del estudiante de la manera más clara y útil posible:\n\nPREGUNTA DEL ESTUDIANTE: '%s'", notebookContext, question)
}

func doubtPrompt(doubt, depth string) string {
	return fmt.Sprintf(`Eres un tutor experto en Cálculo Diferencial. Explica: "%s". Nivel: %s. Usa texto plano (ej: x^2).`, doubt, depth)
}

func deepenPrompt(topic, context string) string {
	return fmt.Sprintf(`Eres un tutor experto. Profundiza en "%s" en el contexto de "%s".`, topic, context)
}

func examplePrompt(topic string) string {
	return fmt.Sprintf(`Proporciona un ejemplo práctico y resuelto sobre "%s" en Cálculo Diferencial. Explícalo paso a paso. Usa texto plano.`, topic)
}

// User-facing copy. Kept in one place so the conversational tone stays
// consistent across handlers.
const (
	msgWelcome = "¡Hola! Soy tu compañero de estudio para Cálculo Diferencial. Tengo las siguientes funciones:\n\n" +
		"📚 `/asesoria`: Dudas específicas sobre temas.\n" +
		"💡 `/ejemplo`: Un ejemplo práctico de un tema.\n" +
		"🧠 `/prueba`: Pon a prueba tus conocimientos.\n" +
		"📖 `/dudas`: Apoyo para el Cuaderno Digital.\n" +
		"📊 `/encuesta`: Ayúdame a mejorar.\n\n" +
		"Estoy para ayudarte."
	msgAskDoubt        = "Por favor, dime tu duda y el nivel de dificultad. \nEj: '¿Qué es la derivada? nivel Fácil'"
	msgAskExampleTopic = "¡Claro! ¿Sobre qué tema de Cálculo Diferencial te gustaría un ejemplo?"
	msgChooseTopic     = "¡Excelente! Elige el tema:"
	msgAskNotebook     = "Has entrado a la sección de ayuda para el Cuaderno Digital.\n\n" +
		"Por favor, escribe tu pregunta sobre cualquier parte del cuaderno y te ayudaré a resolverla."
	msgSurvey = "¡Gracias por ayudarme a mejorar! Tu opinión es muy valiosa.\n\n" +
		"Por favor, completa la siguiente encuesta:\n" + surveyLink
	msgDoubtFormat      = "Formato incorrecto. Ejemplo: '¿Qué es la derivada? nivel Fácil'"
	msgDeepenMore       = "¿Quieres profundizar en algo más?"
	msgExampleDone      = "Espero que el ejemplo haya sido útil."
	msgNotebookMore     = "¿Tienes alguna otra duda sobre el cuaderno?"
	msgNextAction       = "¿Qué te gustaría hacer ahora?"
	msgResolution       = "¿Qué quieres hacer?"
	msgBackToMenu       = "De acuerdo, volviendo al menú principal. Usa /start para ver las opciones."
	msgRetryAnswer      = "¡Claro! Tómate tu tiempo y escribe tu nueva respuesta."
	msgGeneratingNext   = "¡Perfecto! Generando otro ejercicio..."
	msgGenerateFailed   = "No pude generar un ejercicio. Inténtalo de nuevo con /prueba."
	msgSolutionMissing  = "No se encontró la solución."
	btnNoThanks         = "No, gracias"
	btnSimilarExercise  = "Otro ejercicio similar"
	btnBackToMainMenu   = "Regresar al menú principal"
	btnRetry            = "Intentar de nuevo"
	btnShowSolution     = "Ver la solución"
	btnMainMenu         = "« Volver al Menú Principal"
)

func msgChooseDifficulty(topic string) string {
	return fmt.Sprintf("Tema: %s. Elige dificultad:", topic)
}

func msgGenerating(topic string, difficulty int) string {
	return fmt.Sprintf("OK. Generando ejercicio de %s (Nivel %d)...", topic, difficulty)
}

func msgExerciseReady(problem string) string {
	return fmt.Sprintf("Aquí tienes:\n\n%s\n\nEscribe tu respuesta.", problem)
}

func msgSolution(solution string) string {
	return fmt.Sprintf("La solución es:\n\n%s", solution)
}
